package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/where"
)

func TestTransformInputDates(t *testing.T) {
	now := time.Now()
	ptr := now.Add(time.Hour)

	out := transformInput(map[string]any{
		"createdAt": now,
		"expiresAt": &ptr,
		"name":      "x",
		"nilTime":   (*time.Time)(nil),
	})

	assert.Equal(t, now.UnixMilli(), out["createdAt"])
	assert.Equal(t, ptr.UnixMilli(), out["expiresAt"])
	assert.Equal(t, "x", out["name"])
	assert.Nil(t, out["nilTime"])
}

func TestTransformInputIsPure(t *testing.T) {
	in := map[string]any{"createdAt": time.Now()}
	transformInput(in)
	_, still := in["createdAt"].(time.Time)
	assert.True(t, still, "input map must not be modified")
}

func TestTransformOutputExposesEngineID(t *testing.T) {
	doc := &engine.Document{
		ID:           "doc-1",
		Table:        "user",
		CreationTime: 1700000000000,
		Fields:       map[string]any{"email": "a@b.c"},
	}

	out := transformOutput(doc)
	assert.Equal(t, "doc-1", out["id"])
	assert.Equal(t, "a@b.c", out["email"])
	_, hasCT := out["creationTime"]
	assert.False(t, hasCT, "engine creation time is internal")
}

func TestTransformOutputStoredIDWins(t *testing.T) {
	// A table-declared "id" field shadows the engine id: the stored field
	// is what the caller wrote.
	doc := &engine.Document{
		ID:     "doc-1",
		Fields: map[string]any{"id": "caller-id"},
	}
	assert.Equal(t, "caller-id", transformOutput(doc)["id"])
}

func TestNormalizeRawWhereDates(t *testing.T) {
	now := time.Now()
	raw := normalizeRawWhere([]where.Raw{
		{Field: "expiresAt", Operator: where.OpLt, Value: now},
		{Field: "id", Operator: where.OpIn, Value: []any{now, "x"}},
	})

	assert.Equal(t, now.UnixMilli(), raw[0].Value)
	vals := raw[1].Value.([]any)
	assert.Equal(t, now.UnixMilli(), vals[0])
	assert.Equal(t, "x", vals[1])
}

func TestApplySelect(t *testing.T) {
	view := map[string]any{"id": "1", "email": "a@b.c", "name": "x"}

	assert.Equal(t, view, applySelect(view, nil))

	projected := applySelect(view, []string{"id", "email", "ghost"})
	assert.Equal(t, map[string]any{"id": "1", "email": "a@b.c"}, projected)
}
