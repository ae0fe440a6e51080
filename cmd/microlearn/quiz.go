package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/microlearn/internal/cli"
	"github.com/at-ishikawa/microlearn/internal/reconnect"
	"github.com/at-ishikawa/microlearn/internal/report"
	"github.com/at-ishikawa/microlearn/internal/session"
)

func newQuizCommand() *cobra.Command {
	var flags sessionFlags
	var reportFormat string

	command := &cobra.Command{
		Use:   "quiz",
		Short: "Start an adaptive quiz session",
		Long: `Start an adaptive quiz session.

Enter the number of an option to answer, press enter to continue past a review card,
r to refresh progress from the server, and q to end the session early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			options := []cli.QuizOption{
				cli.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
				cli.WithLogger(slog.Default()),
			}
			if reportFormat != "" {
				format, err := report.ParseFormat(reportFormat)
				if err != nil {
					return err
				}
				options = append(options, cli.WithReport(newReportWriter(cfg), format))
			}

			client := newBackendClient(cfg)
			defer func() {
				_ = client.Close()
			}()

			machine, err := session.New(
				reconnect.NewClient(client, cfg.Reconnect, slog.Default()),
				session.WithObservationDelay(cfg.Quiz.ObservationDelay),
				session.WithLogger(slog.Default()),
			)
			if err != nil {
				return fmt.Errorf("session.New() > %w", err)
			}

			params := flags.params(cmd.Flags(), cfg.Quiz)
			quizCLI := cli.NewQuizCLI(machine, params, options...)
			return quizCLI.Run(cmd.Context(), quizCLI)
		},
	}

	flags.register(command.Flags())
	command.Flags().StringVar(&reportFormat, "report", "", "save a report of the session: md, pdf or yaml")
	return command
}
