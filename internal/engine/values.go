package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Index value kinds. Entries of different kinds never compare against each
// other; a probe scans within the probe value's kind only, which gives range
// operators value-type-appropriate ordering.
const (
	kindNull     = 0
	kindBool     = 1
	kindNumber   = 2
	kindString   = 3
	kindCompound = 4
)

// encodeIndexValue maps a document value onto the index entry columns.
// Numbers (and timestamps, already epoch milliseconds by the time they reach
// the engine) order by vnum; strings order by vtext.
func encodeIndexValue(v any) (kind int, vtext string, vnum float64, err error) {
	switch vv := v.(type) {
	case nil:
		return kindNull, "", 0, nil
	case bool:
		if vv {
			return kindBool, "", 1, nil
		}
		return kindBool, "", 0, nil
	case int:
		return kindNumber, "", float64(vv), nil
	case int64:
		return kindNumber, "", float64(vv), nil
	case float64:
		return kindNumber, "", vv, nil
	case float32:
		return kindNumber, "", float64(vv), nil
	case string:
		return kindString, vv, 0, nil
	case time.Time:
		return kindNumber, "", float64(vv.UnixMilli()), nil
	default:
		return 0, "", 0, fmt.Errorf("unindexable value type %T", v)
	}
}

// encodeCompoundKey builds the vtext key for a compound index entry.
// Each value is tagged with its kind so ("1", 2) and (1, "2") never collide,
// and components are joined with NUL, which cannot occur in a tag.
func encodeCompoundKey(values []any) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		kind, vtext, vnum, err := encodeIndexValue(v)
		if err != nil {
			return "", err
		}
		switch kind {
		case kindString:
			parts[i] = "s:" + vtext
		case kindNumber:
			parts[i] = "n:" + strconv.FormatFloat(vnum, 'g', -1, 64)
		case kindBool:
			parts[i] = "b:" + strconv.FormatFloat(vnum, 'g', -1, 64)
		case kindNull:
			parts[i] = "z:"
		default:
			return "", fmt.Errorf("compound key component %d: unsupported kind", i)
		}
	}
	return strings.Join(parts, "\x00"), nil
}

func boundColumn(kind int) (string, error) {
	switch kind {
	case kindString, kindCompound:
		return "vtext", nil
	case kindNumber, kindBool, kindNull:
		return "vnum", nil
	default:
		return "", fmt.Errorf("unknown index value kind %d", kind)
	}
}

func sqlComparator(cmp Comparator) (string, error) {
	switch cmp {
	case CmpEq:
		return "=", nil
	case CmpLt:
		return "<", nil
	case CmpLte:
		return "<=", nil
	case CmpGt:
		return ">", nil
	case CmpGte:
		return ">=", nil
	default:
		return "", fmt.Errorf("unknown comparator %q", cmp)
	}
}

// decodeFields unmarshals a stored document value. Integral numbers come back
// as int64 rather than float64 so epoch-millisecond timestamps survive the
// round trip unchanged.
func decodeFields(value string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return normalizeMap(raw), nil
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(vv.String(), 10, 64); err == nil {
			return n
		}
		f, _ := vv.Float64()
		return f
	case []any:
		for i, e := range vv {
			vv[i] = normalizeValue(e)
		}
		return vv
	case map[string]any:
		return normalizeMap(vv)
	default:
		return v
	}
}
