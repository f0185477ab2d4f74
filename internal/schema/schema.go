package schema

import (
	"fmt"
	"strings"
)

// FieldType describes the storage type of a declared field.
type FieldType string

const (
	// TypeString is a UTF-8 string field.
	TypeString FieldType = "string"

	// TypeNumber is a numeric field (stored as int64 or float64).
	TypeNumber FieldType = "number"

	// TypeBool is a boolean field.
	TypeBool FieldType = "bool"

	// TypeTime is a timestamp field. Presented to callers as time.Time on
	// input and stored as integer epoch milliseconds.
	TypeTime FieldType = "time"
)

// Field is one declared column of a table.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool

	// Unique marks the field as carrying an engine-enforced uniqueness
	// constraint. Unique implies Indexed.
	Unique bool

	// Indexed marks the field as carrying a single-field index usable for
	// point and range lookups.
	Indexed bool
}

// CompoundIndex is a declared two-field index usable for point lookups on
// the full field tuple.
type CompoundIndex struct {
	Name   string
	Fields []string
}

// Table is a named collection with an ordered field list.
type Table struct {
	Name     string
	Fields   []Field
	Compound []CompoundIndex
}

// Schema is the immutable descriptor of all tables the adapter serves.
// Construct via New or Default; never mutate after construction.
type Schema struct {
	tables map[string]Table
	order  []string
}

// New builds a descriptor from the given tables.
//
// Table and field names are case-sensitive but must be globally unique
// ignoring case: two tables (or two fields of one table) that differ only
// by casing are a schema bug and are rejected here.
func New(tables []Table) (*Schema, error) {
	s := &Schema{tables: make(map[string]Table, len(tables))}

	seenTables := make(map[string]string, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("schema: table with empty name")
		}
		lower := strings.ToLower(t.Name)
		if prev, ok := seenTables[lower]; ok {
			return nil, fmt.Errorf("schema: table %q conflicts with %q (names must be unique ignoring case)", t.Name, prev)
		}
		seenTables[lower] = t.Name

		if err := validateFields(t); err != nil {
			return nil, err
		}
		if err := validateCompound(t); err != nil {
			return nil, err
		}

		// Unique implies Indexed.
		for i := range t.Fields {
			if t.Fields[i].Unique {
				t.Fields[i].Indexed = true
			}
		}

		s.tables[t.Name] = t
		s.order = append(s.order, t.Name)
	}

	return s, nil
}

func validateFields(t Table) error {
	seen := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: table %q has a field with empty name", t.Name)
		}
		switch f.Type {
		case TypeString, TypeNumber, TypeBool, TypeTime:
		default:
			return fmt.Errorf("schema: table %q field %q has unknown type %q", t.Name, f.Name, f.Type)
		}
		lower := strings.ToLower(f.Name)
		if prev, ok := seen[lower]; ok {
			return fmt.Errorf("schema: table %q field %q conflicts with %q (names must be unique ignoring case)", t.Name, f.Name, prev)
		}
		seen[lower] = f.Name
	}
	return nil
}

func validateCompound(t Table) error {
	fields := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		fields[f.Name] = true
	}
	for _, c := range t.Compound {
		if len(c.Fields) < 2 {
			return fmt.Errorf("schema: table %q compound index %q needs at least two fields", t.Name, c.Name)
		}
		for _, f := range c.Fields {
			if !fields[f] {
				return fmt.Errorf("schema: table %q compound index %q references undeclared field %q", t.Name, c.Name, f)
			}
		}
	}
	return nil
}

// WithTables returns a new descriptor extended with the given tables.
// The receiver is left untouched. Extension tables are subject to the same
// casing and type checks as builtin ones, including cross-set conflicts.
func (s *Schema) WithTables(extra []Table) (*Schema, error) {
	merged := make([]Table, 0, len(s.order)+len(extra))
	for _, name := range s.order {
		merged = append(merged, s.tables[name])
	}
	merged = append(merged, extra...)
	return New(merged)
}

// Table returns the declared table. Panics on an undeclared name.
func (s *Schema) Table(name string) Table {
	t, ok := s.tables[name]
	if !ok {
		panic(fmt.Sprintf("schema: undeclared table %q", name))
	}
	return t
}

// Has reports whether the table is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Tables returns table names in declaration order.
func (s *Schema) Tables() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// FieldsOf returns the ordered field list of a table.
// Panics on an undeclared table.
func (s *Schema) FieldsOf(table string) []Field {
	t := s.Table(table)
	out := make([]Field, len(t.Fields))
	copy(out, t.Fields)
	return out
}

// Field returns the declared field. Panics on an undeclared table or field.
func (s *Schema) Field(table, field string) Field {
	t := s.Table(table)
	for _, f := range t.Fields {
		if f.Name == field {
			return f
		}
	}
	panic(fmt.Sprintf("schema: undeclared field %q.%q", table, field))
}

// HasField reports whether the field is declared on the table.
// Panics on an undeclared table.
func (s *Schema) HasField(table, field string) bool {
	t := s.Table(table)
	for _, f := range t.Fields {
		if f.Name == field {
			return true
		}
	}
	return false
}

// IsUniqueField reports whether a field carries a uniqueness constraint.
// Panics on an undeclared table or field.
func (s *Schema) IsUniqueField(table, field string) bool {
	return s.Field(table, field).Unique
}

// IsIndexedField reports whether a field carries a single-field index.
// Panics on an undeclared table or field.
func (s *Schema) IsIndexedField(table, field string) bool {
	return s.Field(table, field).Indexed
}

// IndexesOf returns the names of single-field-indexed fields of a table,
// in field declaration order. Panics on an undeclared table.
func (s *Schema) IndexesOf(table string) []string {
	t := s.Table(table)
	var out []string
	for _, f := range t.Fields {
		if f.Indexed {
			out = append(out, f.Name)
		}
	}
	return out
}

// CompoundOf returns the declared compound indexes of a table.
// Panics on an undeclared table.
func (s *Schema) CompoundOf(table string) []CompoundIndex {
	t := s.Table(table)
	out := make([]CompoundIndex, len(t.Compound))
	copy(out, t.Compound)
	return out
}

// FindCompound returns the compound index whose field tuple matches the
// given set of fields regardless of order, or nil if none is declared.
func (s *Schema) FindCompound(table string, fields []string) *CompoundIndex {
	for _, c := range s.CompoundOf(table) {
		if len(c.Fields) != len(fields) {
			continue
		}
		matched := true
		for _, want := range c.Fields {
			found := false
			for _, have := range fields {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if matched {
			c := c
			return &c
		}
	}
	return nil
}
