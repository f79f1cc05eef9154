package compile

import (
	"maps"
	"strings"

	"github.com/matzehuels/flowcraft/pkg/flow"
)

// projections lists, per kind, the parameter paths copied into the declaration.
// Nested keys use dots. Kinds without an entry copy the whole parameter map.
var projections = map[flow.Kind][]string{
	flow.KindAggregator:        {"group_by", "aggregations", "pivot_by"},
	flow.KindFilter:            {"condition"},
	flow.KindSQLTransformation: {"sql"},
	flow.KindJoiner:            {"conditions", "expressions", "advanced.hints"},
	flow.KindDedup:             {"keep", "dedup_by", "order_by"},
	flow.KindSelect:            {"column_list", "limit"},
	flow.KindSorter:            {"sort_by"},
	flow.KindRepartition:       {"num_partitions", "partition_by"},
	flow.KindUnion:             {"union_by_name", "allow_missing_columns"},
	flow.KindDrop:              {"column_list"},
	flow.KindSequenceGenerator: {"column_name", "start", "step"},
	flow.KindDQCheck:           {"checks", "on_failure"},
}

// defaultSQL is emitted for a SQLTransformation without a query.
const defaultSQL = "true"

// Projection returns the parameter paths kept for kind and whether the kind has a
// projection at all. Kinds without one keep every parameter.
func Projection(kind flow.Kind) ([]string, bool) {
	paths, ok := projections[kind]
	return append([]string(nil), paths...), ok
}

// project builds the kind-specific fields of a transformation declaration.
func project(kind flow.Kind, params map[string]any) map[string]any {
	paths, ok := projections[kind]
	if !ok {
		if len(params) == 0 {
			return nil
		}
		return maps.Clone(params)
	}

	out := make(map[string]any, len(paths))
	for _, path := range paths {
		if v, ok := lookup(params, path); ok {
			assign(out, path, v)
		}
	}
	if kind == flow.KindSQLTransformation {
		if sql, _ := out["sql"].(string); sql == "" {
			out["sql"] = defaultSQL
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// lookup resolves a dotted path through nested maps.
func lookup(m map[string]any, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := m[head]
	if !ok {
		return nil, false
	}
	if !nested {
		return v, true
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(sub, rest)
}

// assign sets a dotted path, creating intermediate maps.
func assign(m map[string]any, path string, v any) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		m[head] = v
		return
	}
	sub, ok := m[head].(map[string]any)
	if !ok {
		sub = make(map[string]any)
		m[head] = sub
	}
	assign(sub, rest, v)
}
