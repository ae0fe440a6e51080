package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/microlearn/internal/cli"
	"github.com/at-ishikawa/microlearn/internal/reconnect"
)

func newProgressCommand() *cobra.Command {
	var retries uint

	command := &cobra.Command{
		Use:   "progress <session-id>",
		Short: "Show the current progress of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			policy := cfg.Reconnect
			if cmd.Flags().Changed("retries") {
				policy.Attempts = retries + 1
			}

			client := newBackendClient(cfg)
			defer func() {
				_ = client.Close()
			}()

			sessionID := args[0]
			progress, err := reconnect.FetchProgress(cmd.Context(), client, sessionID, policy, slog.Default())
			if err != nil {
				return err
			}
			cli.PrintProgress(cmd.OutOrStdout(), sessionID, progress)
			return nil
		},
	}

	command.Flags().UintVar(&retries, "retries", 0, "retries after a connection failure (default: reconnect.attempts - 1)")
	return command
}
