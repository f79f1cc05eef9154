package flow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies what a node does. It is derived from the node ID prefix.
type Kind string

// Node kinds.
const (
	KindReader Kind = "Reader"
	KindTarget Kind = "Target"

	KindFilter               Kind = "Filter"
	KindJoiner               Kind = "Joiner"
	KindAggregator           Kind = "Aggregator"
	KindSorter               Kind = "Sorter"
	KindDQCheck              Kind = "DQCheck"
	KindDedup                Kind = "Dedup"
	KindRepartition          Kind = "Repartition"
	KindSQLTransformation    Kind = "SQLTransformation"
	KindUnion                Kind = "Union"
	KindSelect               Kind = "Select"
	KindSequenceGenerator    Kind = "SequenceGenerator"
	KindDrop                 Kind = "Drop"
	KindSchemaTransformation Kind = "SchemaTransformation"
)

// transformationKinds lists the built-in transformation kinds in palette order.
var transformationKinds = []Kind{
	KindFilter,
	KindJoiner,
	KindAggregator,
	KindSorter,
	KindDQCheck,
	KindDedup,
	KindRepartition,
	KindSQLTransformation,
	KindUnion,
	KindSelect,
	KindSequenceGenerator,
	KindDrop,
	KindSchemaTransformation,
}

// TransformationKinds returns the built-in transformation kinds in palette order.
// The returned slice is a copy.
func TransformationKinds() []Kind {
	return append([]Kind(nil), transformationKinds...)
}

// IsReader reports whether k is the Reader kind.
func (k Kind) IsReader() bool { return k == KindReader }

// IsTarget reports whether k is the Target kind.
func (k Kind) IsTarget() bool { return k == KindTarget }

// IsTransformation reports whether k is neither Reader nor Target. Unknown kinds count
// as transformations with default ports.
func (k Kind) IsTransformation() bool { return k != "" && k != KindReader && k != KindTarget }

// Known reports whether k is one of the built-in kinds.
func (k Kind) Known() bool {
	_, ok := kindPorts[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// KindOf extracts the kind from a node ID of the form "<Kind>_<n>".
// IDs without an underscore are treated as a bare kind.
func KindOf(id string) Kind {
	i := strings.LastIndex(id, "_")
	if i <= 0 {
		return Kind(id)
	}
	return Kind(id[:i])
}

// =============================================================================
// Ports
// =============================================================================

// Unlimited is the MaxInputs value for kinds that accept any number of inputs.
const Unlimited = -1

// Ports describes a kind's connection capabilities.
type Ports struct {
	Inputs    int // Required number of inputs
	Outputs   int // Number of outputs
	MaxInputs int // Upper bound on inputs, or Unlimited
}

// Bounded reports whether MaxInputs is finite.
func (p Ports) Bounded() bool { return p.MaxInputs != Unlimited }

// String renders MaxInputs as "unlimited" when unbounded.
func (p Ports) String() string {
	max := "unlimited"
	if p.Bounded() {
		max = fmt.Sprint(p.MaxInputs)
	}
	return fmt.Sprintf("in=%d out=%d max=%s", p.Inputs, p.Outputs, max)
}

type portsJSON struct {
	Inputs    int `json:"inputs"`
	Outputs   int `json:"outputs"`
	MaxInputs any `json:"maxInputs"`
}

// MarshalJSON encodes an unbounded MaxInputs as the string "unlimited".
func (p Ports) MarshalJSON() ([]byte, error) {
	out := portsJSON{Inputs: p.Inputs, Outputs: p.Outputs, MaxInputs: p.MaxInputs}
	if !p.Bounded() {
		out.MaxInputs = "unlimited"
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either an integer or "unlimited" for maxInputs.
func (p *Ports) UnmarshalJSON(data []byte) error {
	var raw struct {
		Inputs    int             `json:"inputs"`
		Outputs   int             `json:"outputs"`
		MaxInputs json.RawMessage `json:"maxInputs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Inputs, p.Outputs = raw.Inputs, raw.Outputs
	var s string
	if err := json.Unmarshal(raw.MaxInputs, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("invalid maxInputs %q", s)
		}
		p.MaxInputs = Unlimited
		return nil
	}
	return json.Unmarshal(raw.MaxInputs, &p.MaxInputs)
}

var defaultPorts = Ports{Inputs: 1, Outputs: 1, MaxInputs: 1}

var kindPorts = map[Kind]Ports{
	KindReader: {Inputs: 0, Outputs: 1, MaxInputs: 0},
	KindTarget: {Inputs: 1, Outputs: 0, MaxInputs: 1},

	KindJoiner: {Inputs: 2, Outputs: 1, MaxInputs: Unlimited},
	KindUnion:  {Inputs: 2, Outputs: 1, MaxInputs: Unlimited},

	KindFilter:               defaultPorts,
	KindAggregator:           defaultPorts,
	KindSorter:               defaultPorts,
	KindDQCheck:              defaultPorts,
	KindDedup:                defaultPorts,
	KindRepartition:          defaultPorts,
	KindSQLTransformation:    defaultPorts,
	KindSelect:               defaultPorts,
	KindSequenceGenerator:    defaultPorts,
	KindDrop:                 defaultPorts,
	KindSchemaTransformation: defaultPorts,
}

// PortsFor returns the port capabilities of k. Unknown kinds get one input and one output.
func PortsFor(k Kind) Ports {
	if p, ok := kindPorts[k]; ok {
		return p
	}
	return defaultPorts
}

// =============================================================================
// Icons
// =============================================================================

// DefaultIcon is returned by IconFor for kinds without a dedicated icon.
const DefaultIcon = "box"

var kindIcons = map[Kind]string{
	KindReader:               "database",
	KindTarget:               "hard-drive-upload",
	KindFilter:               "filter",
	KindJoiner:               "merge",
	KindAggregator:           "sigma",
	KindSorter:               "arrow-down-wide-narrow",
	KindDQCheck:              "shield-check",
	KindDedup:                "copy-minus",
	KindRepartition:          "layout-grid",
	KindSQLTransformation:    "code",
	KindUnion:                "combine",
	KindSelect:               "columns-3",
	KindSequenceGenerator:    "list-ordered",
	KindDrop:                 "trash-2",
	KindSchemaTransformation: "table-properties",
}

// IconFor returns the palette icon name for k, or DefaultIcon.
func IconFor(k Kind) string {
	if icon, ok := kindIcons[k]; ok {
		return icon
	}
	return DefaultIcon
}
