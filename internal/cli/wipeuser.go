package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/convexauth/internal/where"
)

// wipeTables are the tables holding rows keyed by userId that go with the
// user record itself.
var wipeTables = []string{"session", "account", "twoFactor", "oauthAccessToken", "oauthConsent"}

// NewWipeUserCommand creates the wipe-user command.
func NewWipeUserCommand(rootOpts *RootOptions) *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "wipe-user <email>",
		Short: "Delete a user and every record referencing them",
		Long: `Delete a user by email together with their sessions, accounts, and
other records keyed by the user id.

Referencing records are removed first, the user row last, so an interrupted
wipe never leaves orphans pointing at a missing user.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWipeUser(rootOpts, storePath, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "store path (overrides config)")
	return cmd
}

func runWipeUser(opts *RootOptions, storePath, email string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, store, err := openAdapter(opts, storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	user, err := a.FindOne(ctx, "user", []where.Raw{{Field: "email", Value: email}}, nil)
	if err != nil {
		return WrapExitError(ExitFailure, "looking up user", err)
	}
	if user == nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("no user with email %s", email), nil)
	}
	uid := user["id"].(string)

	removed := map[string]int{}
	for _, table := range wipeTables {
		n, err := a.DeleteMany(ctx, table, []where.Raw{{Field: "userId", Value: uid}})
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("wiping %s records", table), err)
		}
		if n > 0 {
			removed[table] = n
			formatter.VerboseLog("removed %d %s records", n, table)
		}
	}

	if err := a.Delete(ctx, "user", []where.Raw{{Field: "id", Value: uid}}); err != nil {
		return WrapExitError(ExitFailure, "deleting user", err)
	}
	removed["user"] = 1

	return formatter.Successf(removed, "Wiped user %s", email)
}
