package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/at-ishikawa/microlearn/internal/backend/rest"
	"github.com/at-ishikawa/microlearn/internal/config"
	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/report"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newBackendClient(cfg *config.Config) *rest.Client {
	return rest.NewClient(cfg.Backend.BaseURL,
		rest.WithAuthToken(cfg.Backend.AuthToken),
		rest.WithTimeout(cfg.Backend.Timeout),
		rest.WithLogger(slog.Default()),
	)
}

func newReportWriter(cfg *config.Config) *report.Writer {
	return report.NewWriter(cfg.Outputs.ReportDirectory,
		report.WithTemplatePath(cfg.Templates.SessionReportTemplate),
		report.WithLogger(slog.Default()),
	)
}

// sessionFlags are the quiz parameters. Unset flags fall back to the quiz section of the config.
type sessionFlags struct {
	userID       string
	course       string
	topic        string
	numQuestions int
}

func (f *sessionFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.userID, "user", "", "learner id (default: quiz.user_id or MICROLEARN_USER_ID)")
	flags.StringVar(&f.course, "course", "", "course name (default: quiz.course)")
	flags.StringVar(&f.topic, "topic", "", "topic name (default: quiz.topic)")
	flags.IntVar(&f.numQuestions, "questions", 0, "number of questions, 1-20 (default: quiz.num_questions)")
}

func (f *sessionFlags) params(flags *pflag.FlagSet, cfg config.QuizConfig) quiz.StartParams {
	params := quiz.StartParams{
		UserID:       cfg.UserID,
		Course:       cfg.Course,
		Topic:        cfg.Topic,
		NumQuestions: cfg.NumQuestions,
	}
	if flags.Changed("user") {
		params.UserID = f.userID
	}
	if flags.Changed("course") {
		params.Course = f.course
	}
	if flags.Changed("topic") {
		params.Topic = f.topic
	}
	if flags.Changed("questions") {
		params.NumQuestions = f.numQuestions
	}
	return params
}

// userIDFlag returns --user when given, otherwise the configured learner
func userIDFlag(flags *pflag.FlagSet, cfg *config.Config) (string, error) {
	userID, err := flags.GetString("user")
	if err != nil {
		return "", fmt.Errorf("flags.GetString(user) > %w", err)
	}
	if !flags.Changed("user") {
		userID = cfg.Quiz.UserID
	}
	if userID == "" {
		return "", fmt.Errorf("--user or MICROLEARN_USER_ID is required")
	}
	return userID, nil
}
