// Package engine provides the document-store substrate the adapter runs on.
//
// The engine exposes the primitives a Convex-style backend offers: point get
// by id, single-field and compound index scans with unique/first/take/collect
// terminal semantics, insert/patch/remove by id, and cursor-based pagination
// with a bounded page size and split signals. It deliberately offers no
// arbitrary predicate evaluation; anything an index cannot resolve is the
// caller's problem.
//
// Storage is SQLite in WAL mode. Every View/Update closure runs as one
// transaction, so each adapter call gets serializable-per-call semantics
// without any locking of its own. Index entries are maintained by the engine
// from the schema descriptor's declarations; uniqueness is enforced with a
// partial UNIQUE index and surfaces as a ConflictError.
package engine
