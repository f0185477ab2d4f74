package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/convexauth/internal/where"
)

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		storePath string
		sessions  bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired verifications (and optionally sessions)",
		Long: `Delete verification records whose expiry has passed.

With --sessions, expired sessions are removed as well. Runs in bounded
pages, so arbitrarily large backlogs purge without loading everything into
memory at once.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(rootOpts, storePath, sessions, cmd)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "store path (overrides config)")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "also purge expired sessions")
	return cmd
}

func runPurge(opts *RootOptions, storePath string, sessions bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, store, err := openAdapter(opts, storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	cutoff := time.Now()
	expired := []where.Raw{{Field: "expiresAt", Operator: where.OpLt, Value: cutoff}}

	removed := map[string]int{}
	n, err := a.DeleteMany(ctx, "verification", expired)
	if err != nil {
		return WrapExitError(ExitFailure, "purging verifications", err)
	}
	removed["verification"] = n
	formatter.VerboseLog("purged %d expired verifications", n)

	if sessions {
		n, err := a.DeleteMany(ctx, "session", expired)
		if err != nil {
			return WrapExitError(ExitFailure, "purging sessions", err)
		}
		removed["session"] = n
		formatter.VerboseLog("purged %d expired sessions", n)
	}

	total := 0
	for _, n := range removed {
		total += n
	}
	return formatter.Successf(removed, "Purged %d expired records", total)
}
