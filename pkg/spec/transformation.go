package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// TransformationDecl is one step of the pipeline.
//
// Fields holds the kind-specific keys (condition, group_by, sql, ...). They are written
// inline, after name, kind and dependent_on, in sorted key order. Keys that collide with
// the fixed ones are dropped on output.
type TransformationDecl struct {
	Name        string         `json:"name" yaml:"name"`
	Kind        string         `json:"kind" yaml:"kind" validate:"required"`
	DependentOn []string       `json:"dependent_on" yaml:"dependent_on"`
	Fields      map[string]any `json:"-" yaml:",inline"`
}

var reservedKeys = map[string]bool{"name": true, "kind": true, "dependent_on": true}

// Field returns a kind-specific field.
func (t *TransformationDecl) Field(key string) (any, bool) {
	v, ok := t.Fields[key]
	return v, ok
}

// MarshalJSON writes the fixed keys first, followed by Fields in sorted order.
func (t TransformationDecl) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		buf.Write(data)
		return nil
	}

	deps := t.DependentOn
	if deps == nil {
		deps = []string{}
	}
	if err := write("name", t.Name); err != nil {
		return nil, err
	}
	if err := write("kind", t.Kind); err != nil {
		return nil, err
	}
	if err := write("dependent_on", deps); err != nil {
		return nil, err
	}
	for _, key := range slices.Sorted(maps.Keys(t.Fields)) {
		if reservedKeys[key] {
			continue
		}
		if err := write(key, t.Fields[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON collects every key other than name, kind and dependent_on into Fields.
func (t *TransformationDecl) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = TransformationDecl{}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &t.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if v, ok := raw["kind"]; ok {
		if err := json.Unmarshal(v, &t.Kind); err != nil {
			return fmt.Errorf("kind: %w", err)
		}
	}
	if v, ok := raw["dependent_on"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &t.DependentOn); err != nil {
			return fmt.Errorf("dependent_on: %w", err)
		}
	}

	for key, v := range raw {
		if reservedKeys[key] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if t.Fields == nil {
			t.Fields = make(map[string]any, len(raw))
		}
		t.Fields[key] = val
	}
	return nil
}
