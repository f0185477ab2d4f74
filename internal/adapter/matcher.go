package adapter

import (
	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/schema"
	"github.com/roach88/convexauth/internal/where"
)

// planKind identifies the retrieval strategy chosen for a where-list.
type planKind int

const (
	// planDirectID: exactly one eq clause on "id" - primary key lookup.
	planDirectID planKind = iota

	// planSingleIndex: exactly one eq clause on an indexed field - index
	// point probe, unique or first per the schema's uniqueness declaration.
	planSingleIndex

	// planCompound: AND'd eq clauses matching a declared compound index.
	planCompound

	// planRange: exactly one lt/lte/gt/gte clause on an indexed field -
	// one-sided index range scan.
	planRange

	// planFullScan: everything else - paginate the table and filter each
	// document with the clause evaluator.
	planFullScan
)

// queryPlan is the matched strategy plus the payload its executor needs.
type queryPlan struct {
	kind planKind
	list where.List

	// planDirectID
	id string

	// planSingleIndex
	field  string
	value  any
	unique bool

	// planCompound
	compound       *schema.CompoundIndex
	compoundValues []any

	// planRange
	rangeCmp engine.Comparator
}

// matcherFunc is one pattern over (table, whereList). Returns nil when the
// shape does not apply.
type matcherFunc func(a *Adapter, table string, list where.List) *queryPlan

// queryMatchers is evaluated in priority order; the final entry always
// matches, so planQuery never fails. Extending the adapter to recognize a
// new shape means inserting a matcher here, not growing a nested if/else.
var queryMatchers = []matcherFunc{
	matchDirectID,
	matchSingleIndex,
	matchCompound,
	matchRange,
	matchFullScan,
}

func (a *Adapter) planQuery(table string, list where.List) *queryPlan {
	for _, m := range queryMatchers {
		if plan := m(a, table, list); plan != nil {
			return plan
		}
	}
	// matchFullScan always matches.
	panic("adapter: no query matcher applied")
}

func matchDirectID(a *Adapter, table string, list where.List) *queryPlan {
	if len(list.Clauses) != 1 {
		return nil
	}
	eq, ok := list.Clauses[0].(where.Eq)
	if !ok || eq.Name != "id" {
		return nil
	}
	id, ok := eq.Value.(string)
	if !ok {
		return nil
	}
	return &queryPlan{kind: planDirectID, list: list, id: id}
}

func matchSingleIndex(a *Adapter, table string, list where.List) *queryPlan {
	if len(list.Clauses) != 1 {
		return nil
	}
	eq, ok := list.Clauses[0].(where.Eq)
	if !ok {
		return nil
	}
	if !a.schema.HasField(table, eq.Name) || !a.schema.IsIndexedField(table, eq.Name) {
		return nil
	}
	return &queryPlan{
		kind:   planSingleIndex,
		list:   list,
		field:  eq.Name,
		value:  eq.Value,
		unique: a.schema.IsUniqueField(table, eq.Name),
	}
}

func matchCompound(a *Adapter, table string, list where.List) *queryPlan {
	if len(list.Clauses) < 2 || list.Connector != where.And {
		return nil
	}
	values := make(map[string]any, len(list.Clauses))
	for _, c := range list.Clauses {
		eq, ok := c.(where.Eq)
		if !ok {
			return nil
		}
		if _, dup := values[eq.Name]; dup {
			return nil
		}
		values[eq.Name] = eq.Value
	}

	compound := a.schema.FindCompound(table, list.Fields())
	if compound == nil {
		return nil
	}

	ordered := make([]any, len(compound.Fields))
	for i, f := range compound.Fields {
		ordered[i] = values[f]
	}
	return &queryPlan{
		kind:           planCompound,
		list:           list,
		compound:       compound,
		compoundValues: ordered,
	}
}

func matchRange(a *Adapter, table string, list where.List) *queryPlan {
	if len(list.Clauses) != 1 {
		return nil
	}
	r, ok := list.Clauses[0].(where.Range)
	if !ok {
		return nil
	}
	if !a.schema.HasField(table, r.Name) || !a.schema.IsIndexedField(table, r.Name) {
		return nil
	}
	var cmp engine.Comparator
	switch r.Op {
	case where.OpLt:
		cmp = engine.CmpLt
	case where.OpLte:
		cmp = engine.CmpLte
	case where.OpGt:
		cmp = engine.CmpGt
	case where.OpGte:
		cmp = engine.CmpGte
	default:
		return nil
	}
	return &queryPlan{
		kind:     planRange,
		list:     list,
		field:    r.Name,
		value:    r.Value,
		rangeCmp: cmp,
	}
}

// matchFullScan is the fallback: OR'd clause lists, set membership, string
// matching, and AND combinations with no covering compound index all route
// here. An index probe cannot serve a disjunction across values without
// merging multiple scans, so correctness comes from the evaluator instead.
func matchFullScan(a *Adapter, table string, list where.List) *queryPlan {
	return &queryPlan{kind: planFullScan, list: list}
}
