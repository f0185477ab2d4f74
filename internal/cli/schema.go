package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/convexauth/internal/schema"
)

// tableDump is the JSON shape of one table in schema output.
type tableDump struct {
	Name     string         `json:"name"`
	Fields   []fieldDump    `json:"fields"`
	Compound []compoundDump `json:"compound,omitempty"`
}

type fieldDump struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
	Indexed  bool   `json:"indexed,omitempty"`
}

type compoundDump struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the effective table schema",
		Long: `Print the effective table schema: the builtin auth tables plus any
plugin tables declared in the configured CUE extension file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, "")
	if err != nil {
		return err
	}
	sch, err := buildSchema(cfg)
	if err != nil {
		return err
	}

	dump := dumpSchema(sch)
	if opts.Format == "json" {
		return formatter.Success(dump)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderSchema(dump))
	return nil
}

// dumpSchema flattens a descriptor into declaration order. Deterministic:
// the same schema always produces the same dump.
func dumpSchema(sch *schema.Schema) []tableDump {
	var out []tableDump
	for _, name := range sch.Tables() {
		t := sch.Table(name)
		dump := tableDump{Name: name}
		for _, f := range t.Fields {
			dump.Fields = append(dump.Fields, fieldDump{
				Name:     f.Name,
				Type:     string(f.Type),
				Optional: f.Optional,
				Unique:   f.Unique,
				Indexed:  f.Indexed,
			})
		}
		for _, c := range t.Compound {
			dump.Compound = append(dump.Compound, compoundDump{Name: c.Name, Fields: c.Fields})
		}
		out = append(out, dump)
	}
	return out
}

func renderSchema(dump []tableDump) string {
	var b strings.Builder
	for _, t := range dump {
		fmt.Fprintf(&b, "%s\n", t.Name)
		for _, f := range t.Fields {
			var marks []string
			if f.Unique {
				marks = append(marks, "unique")
			} else if f.Indexed {
				marks = append(marks, "indexed")
			}
			if f.Optional {
				marks = append(marks, "optional")
			}
			suffix := ""
			if len(marks) > 0 {
				suffix = " (" + strings.Join(marks, ", ") + ")"
			}
			fmt.Fprintf(&b, "  %-24s %s%s\n", f.Name, f.Type, suffix)
		}
		for _, c := range t.Compound {
			fmt.Fprintf(&b, "  [%s on %s]\n", c.Name, strings.Join(c.Fields, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
