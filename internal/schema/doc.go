// Package schema declares the fixed set of auth tables the adapter serves,
// along with their fields, uniqueness constraints, and index declarations.
//
// The descriptor is built once at process start and never mutated afterwards.
// It is safe for unsynchronized concurrent reads. Referencing an undeclared
// table or field is a programming error and panics immediately rather than
// surfacing as a runtime-recoverable condition.
//
// Auth plugins may contribute additional tables via a CUE extension file
// (see LoadExtensions). Merging extensions produces a new descriptor; the
// original is never modified in place.
package schema
