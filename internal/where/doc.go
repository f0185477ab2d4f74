// Package where defines the typed query-predicate representation used by the
// adapter core.
//
// The auth framework hands the adapter loosely typed where-clauses
// ({field, operator, value, connector} JSON-ish data). At the boundary those
// are converted into a closed union of clause types so everything downstream
// operates over a statically known shape:
//
//   - Eq: equality on one field
//   - Range: one-sided lt/lte/gt/gte comparison
//   - Membership: in/not_in set membership (ne is a negated one-element set)
//   - StringMatch: contains/starts_with/ends_with, case-sensitive
//
// The union is sealed - only types in this package implement Clause - which
// enables exhaustive type switches in the matcher and evaluator.
package where
