package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadError represents an error encountered while loading an extension file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadExtensions parses a CUE file declaring plugin tables and returns them
// ready to merge via WithTables.
//
// Expected shape:
//
//	tables: {
//		passkey: {
//			fields: {
//				userId:       {type: "string", index: true}
//				credentialID: {type: "string", unique: true}
//				counter:      {type: "number"}
//			}
//			compound: [{name: "userId_credentialID", fields: ["userId", "credentialID"]}]
//		}
//	}
//
// Field declaration order in the file is preserved in the descriptor.
func LoadExtensions(path string) ([]Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("reading extension file: %v", err)}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("compiling CUE: %v", err)}
	}

	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, &LoadError{Path: path, Message: `missing "tables" declaration`}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("iterating tables: %v", err)}
	}

	var tables []Table
	for iter.Next() {
		name := iter.Selector().Unquoted()
		table, err := parseTable(name, iter.Value())
		if err != nil {
			return nil, &LoadError{Path: path, Message: err.Error()}
		}
		tables = append(tables, table)
	}

	if len(tables) == 0 {
		return nil, &LoadError{Path: path, Message: "no tables declared"}
	}
	return tables, nil
}

func parseTable(name string, v cue.Value) (Table, error) {
	table := Table{Name: name}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return Table{}, fmt.Errorf("table %q: missing fields", name)
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return Table{}, fmt.Errorf("table %q: iterating fields: %v", name, err)
	}
	for iter.Next() {
		field, err := parseField(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return Table{}, fmt.Errorf("table %q: %v", name, err)
		}
		table.Fields = append(table.Fields, field)
	}

	compoundVal := v.LookupPath(cue.ParsePath("compound"))
	if compoundVal.Exists() {
		list, err := compoundVal.List()
		if err != nil {
			return Table{}, fmt.Errorf("table %q: compound must be a list: %v", name, err)
		}
		for list.Next() {
			var decl struct {
				Name   string   `json:"name"`
				Fields []string `json:"fields"`
			}
			if err := list.Value().Decode(&decl); err != nil {
				return Table{}, fmt.Errorf("table %q: decoding compound index: %v", name, err)
			}
			table.Compound = append(table.Compound, CompoundIndex{Name: decl.Name, Fields: decl.Fields})
		}
	}

	return table, nil
}

func parseField(name string, v cue.Value) (Field, error) {
	var decl struct {
		Type     string `json:"type"`
		Optional bool   `json:"optional"`
		Unique   bool   `json:"unique"`
		Index    bool   `json:"index"`
	}
	if err := v.Decode(&decl); err != nil {
		return Field{}, fmt.Errorf("field %q: %v", name, err)
	}
	if decl.Type == "" {
		return Field{}, fmt.Errorf("field %q: missing type", name)
	}
	return Field{
		Name:     name,
		Type:     FieldType(decl.Type),
		Optional: decl.Optional,
		Unique:   decl.Unique,
		Indexed:  decl.Index || decl.Unique,
	}, nil
}
