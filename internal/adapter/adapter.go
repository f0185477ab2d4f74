package adapter

import (
	"context"

	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/schema"
	"github.com/roach88/convexauth/internal/where"
)

// DefaultBulkPageSize is the logical page size bulk deletions request per
// transaction. The engine caps what one call actually returns.
const DefaultBulkPageSize = 500

// userTable is the table whose create/delete mutations trigger hooks.
const userTable = "user"

// Hooks are side-effect callbacks invoked transactionally with user row
// mutations: the callback runs inside the same engine transaction as the
// write, so a hook error rolls the row mutation back with it.
//
// Hooks are injected at construction time; there is no registration after
// the fact.
type Hooks struct {
	OnUserCreate func(ctx context.Context, tx engine.Writer, doc *engine.Document) error
	OnUserDelete func(ctx context.Context, tx engine.Writer, doc *engine.Document) error
}

// SortBy orders FindMany results.
type SortBy struct {
	Field     string
	Direction string // "asc" | "desc"
}

// FindManyOptions carries the optional parts of a findMany request.
type FindManyOptions struct {
	SortBy *SortBy
	Limit  int
	Offset int
}

// Adapter serves the auth framework's adapter contract on top of a document
// engine. Stateless per call: every method runs as one engine transaction
// (bulk deletion excepted, which intentionally commits per page).
type Adapter struct {
	eng          engine.Engine
	schema       *schema.Schema
	hooks        Hooks
	bulkPageSize int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHooks registers user create/delete hooks.
func WithHooks(h Hooks) Option {
	return func(a *Adapter) { a.hooks = h }
}

// WithBulkPageSize overrides the logical page size for bulk deletions.
func WithBulkPageSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.bulkPageSize = n
		}
	}
}

// New constructs an Adapter over the given engine and schema descriptor.
func New(eng engine.Engine, sch *schema.Schema, opts ...Option) *Adapter {
	a := &Adapter{
		eng:          eng,
		schema:       sch,
		bulkPageSize: DefaultBulkPageSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// checkModel rejects operations on undeclared tables up front so no schema
// accessor downstream has to handle the miss.
func (a *Adapter) checkModel(op, model string) error {
	if !a.schema.Has(model) {
		return unsupported(op, model, "undeclared model")
	}
	return nil
}

// parseWhere normalizes raw clause values (dates become epoch milliseconds,
// matching the stored representation) and converts the list into the typed
// clause union. Clauses on undeclared fields are rejected here; the schema
// is the contract and silently matching nothing would hide the bug.
func (a *Adapter) parseWhere(op, model string, raw []where.Raw) (where.List, error) {
	if err := a.checkModel(op, model); err != nil {
		return where.List{}, err
	}
	normalized := normalizeRawWhere(raw)
	list, err := where.Parse(normalized)
	if err != nil {
		return where.List{}, unsupported(op, model, "%v", err)
	}
	for _, c := range list.Clauses {
		if c.Field() == "id" {
			continue
		}
		if !a.schema.HasField(model, c.Field()) {
			return where.List{}, unsupported(op, model, "clause on undeclared field %q", c.Field())
		}
	}
	return list, nil
}
