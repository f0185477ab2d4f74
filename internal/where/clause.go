package where

import (
	"fmt"
)

// Operator is a raw comparison operator as received from the caller.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

// Connector combines clauses within one where-list.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Raw is the loosely typed clause shape received at the adapter boundary.
// Operator defaults to eq, Connector to AND.
type Raw struct {
	Field     string
	Value     any
	Operator  Operator
	Connector Connector
}

// Clause is the sealed union of typed predicate clauses.
type Clause interface {
	clauseNode()

	// Field returns the document field the clause constrains.
	Field() string
}

// Eq matches documents whose field equals Value.
type Eq struct {
	Name  string
	Value any
}

func (Eq) clauseNode()     {}
func (c Eq) Field() string { return c.Name }

// Range matches documents whose field compares against Value with Op
// (one of lt, lte, gt, gte).
type Range struct {
	Name  string
	Op    Operator
	Value any
}

func (Range) clauseNode()     {}
func (c Range) Field() string { return c.Name }

// Membership matches documents whose field is (or, negated, is not) one of
// Values. A ne clause parses to Membership{Values: [v], Negate: true}.
type Membership struct {
	Name   string
	Values []any
	Negate bool
}

func (Membership) clauseNode()     {}
func (c Membership) Field() string { return c.Name }

// MatchKind selects the string test performed by a StringMatch clause.
type MatchKind string

const (
	MatchContains   MatchKind = "contains"
	MatchStartsWith MatchKind = "starts_with"
	MatchEndsWith   MatchKind = "ends_with"
)

// StringMatch performs a case-sensitive substring, prefix, or suffix test.
type StringMatch struct {
	Name  string
	Kind  MatchKind
	Value string
}

func (StringMatch) clauseNode()     {}
func (c StringMatch) Field() string { return c.Name }

// List is a parsed where-list: clauses joined by a single connector.
type List struct {
	Connector Connector
	Clauses   []Clause
}

// Empty reports whether the list constrains nothing.
func (l List) Empty() bool { return len(l.Clauses) == 0 }

// Fields returns the constrained field names in clause order.
func (l List) Fields() []string {
	out := make([]string, len(l.Clauses))
	for i, c := range l.Clauses {
		out[i] = c.Field()
	}
	return out
}

// Parse converts raw clauses into the typed union.
//
// All clauses in one list must share a single connector; a list mixing AND
// and OR is rejected here so no downstream path has to guess its semantics.
func Parse(raw []Raw) (List, error) {
	list := List{Connector: And}

	for i, rc := range raw {
		conn := rc.Connector
		if conn == "" {
			conn = And
		}
		if conn != And && conn != Or {
			return List{}, fmt.Errorf("where: unknown connector %q", rc.Connector)
		}
		if i == 0 {
			list.Connector = conn
		} else if conn != list.Connector {
			return List{}, fmt.Errorf("where: mixed AND/OR connectors in one where-list")
		}

		clause, err := parseClause(rc)
		if err != nil {
			return List{}, err
		}
		list.Clauses = append(list.Clauses, clause)
	}

	// A single clause is a conjunction of one.
	if len(list.Clauses) == 1 {
		list.Connector = And
	}

	return list, nil
}

func parseClause(rc Raw) (Clause, error) {
	if rc.Field == "" {
		return nil, fmt.Errorf("where: clause with empty field")
	}

	op := rc.Operator
	if op == "" {
		op = OpEq
	}

	switch op {
	case OpEq:
		return Eq{Name: rc.Field, Value: rc.Value}, nil
	case OpNe:
		return Membership{Name: rc.Field, Values: []any{rc.Value}, Negate: true}, nil
	case OpLt, OpLte, OpGt, OpGte:
		return Range{Name: rc.Field, Op: op, Value: rc.Value}, nil
	case OpIn, OpNotIn:
		values, err := asSlice(rc.Value)
		if err != nil {
			return nil, fmt.Errorf("where: %s on field %q: %v", op, rc.Field, err)
		}
		return Membership{Name: rc.Field, Values: values, Negate: op == OpNotIn}, nil
	case OpContains, OpStartsWith, OpEndsWith:
		s, ok := rc.Value.(string)
		if !ok {
			return nil, fmt.Errorf("where: %s on field %q requires a string value, got %T", op, rc.Field, rc.Value)
		}
		return StringMatch{Name: rc.Field, Kind: MatchKind(op), Value: s}, nil
	default:
		return nil, fmt.Errorf("where: unknown operator %q on field %q", rc.Operator, rc.Field)
	}
}

func asSlice(v any) ([]any, error) {
	switch vv := v.(type) {
	case []any:
		return vv, nil
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, nil
	case []int64:
		out := make([]any, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("requires an array value, got %T", v)
	}
}
