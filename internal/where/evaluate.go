package where

import "strings"

// Compare orders two document values.
//
// Returns (-1|0|1, true) when the values are comparable: numerics compare
// numerically (int64 and float64 interchange), strings lexicographically by
// bytes, bools with false < true. Returns (0, false) for cross-type or
// non-orderable pairs; range clauses treat those as non-matching.
func Compare(a, b any) (int, bool) {
	if an, ok := asNumber(a); ok {
		if bn, bok := asNumber(b); bok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}

	return 0, false
}

// Equal tests document-value equality with numeric interchange
// (int64 3 equals float64 3).
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := asNumber(a); ok {
		bn, bok := asNumber(b)
		return bok && an == bn
	}
	return a == b
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return float64(n), true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Evaluate applies one clause to a document's field value.
func Evaluate(doc map[string]any, c Clause) bool {
	value := doc[c.Field()]

	switch cl := c.(type) {
	case Eq:
		return Equal(value, cl.Value)
	case Range:
		cmp, ok := Compare(value, cl.Value)
		if !ok {
			return false
		}
		switch cl.Op {
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		}
		return false
	case Membership:
		found := false
		for _, candidate := range cl.Values {
			if Equal(value, candidate) {
				found = true
				break
			}
		}
		return found != cl.Negate
	case StringMatch:
		s, ok := value.(string)
		if !ok {
			return false
		}
		switch cl.Kind {
		case MatchContains:
			return strings.Contains(s, cl.Value)
		case MatchStartsWith:
			return strings.HasPrefix(s, cl.Value)
		case MatchEndsWith:
			return strings.HasSuffix(s, cl.Value)
		}
		return false
	}

	return false
}

// EvaluateList applies a full where-list: AND requires every clause to hold,
// OR requires at least one. An empty list matches everything.
func EvaluateList(doc map[string]any, list List) bool {
	if list.Empty() {
		return true
	}

	if list.Connector == Or {
		for _, c := range list.Clauses {
			if Evaluate(doc, c) {
				return true
			}
		}
		return false
	}

	for _, c := range list.Clauses {
		if !Evaluate(doc, c) {
			return false
		}
	}
	return true
}
