package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/toggl2github/pkg/config"
	"github.com/harrisonrobin/toggl2github/pkg/github"
	"github.com/harrisonrobin/toggl2github/pkg/syncer"
	"github.com/harrisonrobin/toggl2github/pkg/toggl"
	"github.com/harrisonrobin/toggl2github/pkg/vault"
)

type rootOptions struct {
	verbose bool
	vault   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "toggl2github",
		Short:         "Sync Toggl project with Github project",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.vault, "vault", "", "Secret backend: keyring or file (default $"+vault.EnvBackend+" or keyring)")

	root.AddCommand(newSyncCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newCloseMilestonesCmd(opts))
	return root
}

func openStore(opts *rootOptions) (*config.Store, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}
	v, err := vault.Open(opts.vault, dir)
	if err != nil {
		return nil, err
	}
	return config.Open(v)
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <toggl_project_name> <github_project_number>",
		Short: "Write Toggl task durations into the Time Spent field of matching issues",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("github_project_number must be an integer: %w", err)
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			creds, err := syncer.LoadCredentials(store)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			tracker := toggl.NewClient(creds.TogglUser, creds.TogglPassword)
			board := github.NewClient(ctx, creds.GHUser, creds.GHToken)
			engine := syncer.New(tracker, board, creds.WorkspaceID, creds.GHUser, slog.Default())

			report, err := engine.Sync(ctx, args[0], number)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// configFlags are the settings the config command accepts.
var configFlags = []struct {
	name  string
	usage string
}{
	{config.GHUser, "Github user"},
	{config.GHToken, "Github token"},
	{config.TogglUser, "Toggl user"},
	{config.TogglPassword, "Toggl password"},
	{config.TogglWorkspaceID, "Toggl workspace id"},
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Store credentials and settings; secrets go to the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make(map[string]any)
			for _, f := range configFlags {
				if !cmd.Flags().Changed(f.name) {
					continue
				}
				value, _ := cmd.Flags().GetString(f.name)
				if value == "" {
					continue
				}
				if f.name == config.TogglWorkspaceID {
					id, err := strconv.ParseInt(value, 10, 64)
					if err != nil {
						return fmt.Errorf("%s must be an integer: %w", f.name, err)
					}
					pairs[f.name] = id
					continue
				}
				pairs[f.name] = value
			}
			if len(pairs) == 0 {
				return cmd.Help()
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			if err := store.Set(pairs); err != nil {
				return err
			}
			slog.Info("configuration saved", "path", store.Path, "keys", len(pairs))
			return nil
		},
	}
	for _, f := range configFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	return cmd
}

func newCloseMilestonesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close-milestones <repo>",
		Short: "Close open milestones whose issues are all closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			vals, err := store.Get(config.GHUser, config.GHToken)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := github.NewClient(ctx, vals.String(config.GHUser), vals.String(config.GHToken))
			closed, err := client.CloseCompletedMilestones(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d milestone(s)\n", len(closed))
			return nil
		},
	}
}
