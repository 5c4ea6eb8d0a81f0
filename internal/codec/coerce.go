package codec

import (
	"strconv"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// Coercion helpers for the generic attribute/relationship bags. Bags built
// by Unpack hold native values (string, []string, types.Relationship); bags
// decoded from caller JSON hold any-typed values (string, float64, []any,
// map[string]any). Both shapes must be accepted.

// asString returns v as a string. Only genuine strings qualify; numbers and
// other scalars do not (required string attributes stay strict).
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asScalar renders v as the string form stored in a scalar row. Unlike
// asString it accepts numeric values, which JSON-decoded bags carry as
// float64.
func asScalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

// asStringList returns v as a list of strings. Accepts []string and []any
// whose elements are all strings. Returns a fresh slice.
func asStringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out, true
	case []any:
		out := make([]string, 0, len(x))
		for _, el := range x {
			s, ok := el.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// asRelationship returns v as a single reference. Accepts types.Relationship
// values and JSON-decoded {"type": ..., "id": ...} maps.
func asRelationship(v any) (types.Relationship, bool) {
	switch x := v.(type) {
	case types.Relationship:
		return x, true
	case *types.Relationship:
		if x == nil {
			return types.Relationship{}, false
		}
		return *x, true
	case map[string]any:
		rel := types.Relationship{}
		if t, ok := x["type"].(string); ok {
			rel.Type = t
		}
		switch id := x["id"].(type) {
		case string:
			rel.ID = &id
		case nil:
			// unbound reference
		default:
			return types.Relationship{}, false
		}
		return rel, true
	}
	return types.Relationship{}, false
}

// asRelationshipList returns v as a list of references. Accepts
// []types.Relationship and []any whose elements all coerce via
// asRelationship.
func asRelationshipList(v any) ([]types.Relationship, bool) {
	switch x := v.(type) {
	case []types.Relationship:
		out := make([]types.Relationship, len(x))
		copy(out, x)
		return out, true
	case []any:
		out := make([]types.Relationship, 0, len(x))
		for _, el := range x {
			rel, ok := asRelationship(el)
			if !ok {
				return nil, false
			}
			out = append(out, rel)
		}
		return out, true
	}
	return nil, false
}

// isBound reports whether a reference carries a concrete target id.
func isBound(rel types.Relationship) bool {
	return rel.ID != nil && *rel.ID != ""
}
