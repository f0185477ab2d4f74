package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/convexauth/internal/engine"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show per-table record counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, storePath, cmd)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "store path (overrides config)")
	return cmd
}

func runStats(opts *RootOptions, storePath string, cmd *cobra.Command) error {
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

	counts := make(map[string]int, len(sch.Tables()))
	total := 0
	err = store.View(context.Background(), func(r engine.Reader) error {
		for _, table := range sch.Tables() {
			n, err := r.Count(table)
			if err != nil {
				return err
			}
			counts[table] = n
			total += n
		}
		return nil
	})
	if err != nil {
		return WrapExitError(ExitFailure, "counting records", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"tables": counts, "total": total})
	}

	var b strings.Builder
	for _, table := range sch.Tables() {
		fmt.Fprintf(&b, "%-20s %d\n", table, counts[table])
	}
	fmt.Fprintf(&b, "%-20s %d\n", "total", total)
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}
