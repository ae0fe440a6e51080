package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/microlearn/internal/cli"
	"github.com/at-ishikawa/microlearn/internal/report"
)

func newHistoryCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "history",
		Short: "Show past sessions",
	}
	command.PersistentFlags().String("user", "", "learner id (default: quiz.user_id or MICROLEARN_USER_ID)")

	command.AddCommand(newHistoryListCommand())
	command.AddCommand(newHistoryShowCommand())
	return command
}

func newHistoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past sessions with monthly statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			userID, err := userIDFlag(cmd.Flags(), cfg)
			if err != nil {
				return err
			}

			client := newBackendClient(cfg)
			defer func() {
				_ = client.Close()
			}()

			entries, err := client.FetchHistory(cmd.Context(), userID)
			if err != nil {
				return err
			}
			cli.PrintHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

func newHistoryShowCommand() *cobra.Command {
	var reportFormat string

	command := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the summary of a past session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			userID, err := userIDFlag(cmd.Flags(), cfg)
			if err != nil {
				return err
			}

			var format report.Format
			if reportFormat != "" {
				if format, err = report.ParseFormat(reportFormat); err != nil {
					return err
				}
			}

			client := newBackendClient(cfg)
			defer func() {
				_ = client.Close()
			}()

			entries, err := client.FetchHistory(cmd.Context(), userID)
			if err != nil {
				return err
			}
			entry, err := cli.FindHistoryEntry(entries, args[0])
			if err != nil {
				return err
			}

			result := report.FromHistoryEntry(userID, entry)
			cli.PrintSummary(cmd.OutOrStdout(), result)
			if format == "" {
				return nil
			}

			path, err := newReportWriter(cfg).Save(result, format)
			if err != nil {
				return fmt.Errorf("failed to save a report: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to: %s\n", path)
			return nil
		},
	}

	command.Flags().StringVar(&reportFormat, "report", "", "save a report of the session: md, pdf or yaml")
	return command
}
