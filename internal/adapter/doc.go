// Package adapter translates the auth framework's generic CRUD+query
// contract into document-engine operations.
//
// The read path classifies each where-list into a retrieval plan (direct id
// lookup, single-field index probe, allow-listed compound index lookup,
// one-sided index range scan, or full-scan-with-filter) and dispatches
// accordingly. Shapes that cannot be served correctly are rejected with an
// UnsupportedQueryError before storage is touched - wrong-but-silent results
// are never an option.
//
// The write path runs each call as one engine transaction. Registered user
// hooks execute inside the same transaction as the row write, so a failing
// hook aborts the write. Bulk deletions decompose into one transaction per
// page, following continuation cursors (honoring split signals) until the
// matching set is exhausted.
package adapter
