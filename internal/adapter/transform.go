package adapter

import (
	"time"

	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/where"
)

// transformInput converts caller data into the storage representation:
// date values become integer epoch milliseconds, everything else passes
// through unchanged. Pure; the input map is not modified.
func transformInput(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = transformValue(v)
	}
	return out
}

func transformValue(v any) any {
	switch vv := v.(type) {
	case time.Time:
		return vv.UnixMilli()
	case *time.Time:
		if vv == nil {
			return nil
		}
		return vv.UnixMilli()
	default:
		return v
	}
}

// transformOutput builds the caller-facing view of a document: the engine's
// primary key is exposed as "id" and the engine's creation timestamp is not
// included. All stored fields pass through as-is.
//
// A table-declared "id" field, should one exist, is copied after the engine
// id and therefore wins. Surprising, but deliberate: the stored field is
// what the caller wrote.
func transformOutput(doc *engine.Document) map[string]any {
	out := make(map[string]any, len(doc.Fields)+1)
	out["id"] = doc.ID
	for k, v := range doc.Fields {
		out[k] = v
	}
	return out
}

// normalizeRawWhere applies the input transform to clause probe values so
// date comparisons run against the stored millisecond representation.
func normalizeRawWhere(raw []where.Raw) []where.Raw {
	out := make([]where.Raw, len(raw))
	for i, rc := range raw {
		rc.Value = normalizeProbe(rc.Value)
		out[i] = rc
	}
	return out
}

func normalizeProbe(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = transformValue(e)
		}
		return out
	default:
		return transformValue(v)
	}
}

// applySelect projects a view onto the requested fields. An empty selection
// returns the full view.
func applySelect(view map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return view
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := view[f]; ok {
			out[f] = v
		}
	}
	return out
}
