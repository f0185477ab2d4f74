package cli

import (
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the store and apply the schema",
		Long: `Create the SQLite store and apply the document schema.

Idempotent: running init against an existing store verifies the schema and
leaves the data untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, storePath, cmd)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "store path (overrides config)")
	return cmd
}

func runInit(opts *RootOptions, storePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, storePath)
	if err != nil {
		return err
	}
	sch, err := buildSchema(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, sch)
	if err != nil {
		return err
	}
	defer store.Close()

	formatter.VerboseLog("store at %s, %d tables declared", cfg.StorePath, len(sch.Tables()))
	return formatter.Successf(map[string]any{
		"store":  cfg.StorePath,
		"tables": len(sch.Tables()),
	}, "Initialized store at %s (%d tables)", cfg.StorePath, len(sch.Tables()))
}
