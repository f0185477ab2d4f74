package engine

import (
	"context"
)

// Document is one record of a table. ID is engine-assigned and opaque;
// CreationTime is epoch milliseconds assigned at insert.
type Document struct {
	ID           string
	Table        string
	CreationTime int64
	Fields       map[string]any
}

// Comparator bounds an index scan.
type Comparator string

const (
	CmpEq  Comparator = "eq"
	CmpLt  Comparator = "lt"
	CmpLte Comparator = "lte"
	CmpGt  Comparator = "gt"
	CmpGte Comparator = "gte"
)

// IndexRef selects documents through a single-field index for pagination.
// A nil IndexRef paginates the whole table in creation order.
type IndexRef struct {
	Field string
	Cmp   Comparator
	Value any
}

// PageStatus signals that a requested page was too large for one call.
type PageStatus string

const (
	// SplitRecommended suggests the caller continue with SplitCursor to keep
	// per-call work bounded.
	SplitRecommended PageStatus = "SplitRecommended"

	// SplitRequired means the requested page size exceeded the engine cap and
	// the returned page was truncated; the caller must continue with
	// SplitCursor (or ContinueCursor) to see the rest.
	SplitRequired PageStatus = "SplitRequired"
)

// PageOptions configures one Paginate call. An empty Cursor starts from the
// beginning. NumItems is clamped to MaxPageSize.
type PageOptions struct {
	Cursor   string
	NumItems int
}

// PageResult is one page of documents plus continuation state.
type PageResult struct {
	Page           []Document
	IsDone         bool
	ContinueCursor string

	// PageStatus is empty for a normal page. When set, SplitCursor points
	// inside the returned page; continuing from it revisits part of the page
	// but never skips past unseen documents.
	PageStatus  PageStatus
	SplitCursor string
}

// MaxPageSize is the hard cap on documents returned by one Paginate call.
const MaxPageSize = 200

// Reader is the read surface available inside a transaction.
type Reader interface {
	// Get returns the document by id, or nil if absent (or belonging to a
	// different table).
	Get(table, id string) (*Document, error)

	// IndexUnique performs a point lookup on a unique single-field index.
	// Returns nil when absent; errors if more than one document matches.
	IndexUnique(table, field string, value any) (*Document, error)

	// IndexFirst returns the first document matching an equality probe on a
	// single-field index, in index order, or nil.
	IndexFirst(table, field string, value any) (*Document, error)

	// IndexScan scans a single-field index bounded on one side by cmp/value,
	// in index order. limit <= 0 collects everything.
	IndexScan(table, field string, cmp Comparator, value any, limit int) ([]Document, error)

	// IndexCount counts documents matching an equality probe on a
	// single-field index.
	IndexCount(table, field string, value any) (int, error)

	// CompoundFirst returns the first document matching a point lookup on a
	// declared compound index, in creation order, or nil when absent.
	// values aligns with the index's declared field order.
	CompoundFirst(table, indexName string, values []any) (*Document, error)

	// Count returns the number of documents in a table.
	Count(table string) (int, error)

	// Paginate returns one bounded page of documents in creation order,
	// optionally restricted through an index.
	Paginate(table string, ref *IndexRef, opts PageOptions) (*PageResult, error)
}

// Writer extends Reader with mutations.
type Writer interface {
	Reader

	// Insert stores a new document and returns its engine-assigned id.
	// Violating a declared uniqueness constraint returns a ConflictError.
	Insert(table string, fields map[string]any) (string, error)

	// Patch partially replaces the given fields of an existing document.
	// Fields absent from the map are left untouched.
	Patch(table, id string, fields map[string]any) error

	// Remove deletes a document. Removing an absent id is a no-op.
	Remove(table, id string) error
}

// Engine is the transactional entry point. Each View/Update closure runs as
// one storage transaction; an error from the closure rolls the transaction
// back, including every write already issued inside it.
type Engine interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Writer) error) error
	Close() error
}
