package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/report"
	"github.com/at-ishikawa/microlearn/internal/session"
	"github.com/at-ishikawa/microlearn/internal/timing"
)

// QuizCLI drives one adaptive quiz session from the terminal
type QuizCLI struct {
	*InteractiveQuizCLI
	machine      *session.Machine
	params       quiz.StartParams
	clock        timing.Clock
	reportWriter *report.Writer
	reportFormat report.Format
	logger       *slog.Logger
}

type QuizOption func(*quizOptions)

type quizOptions struct {
	stdin        io.Reader
	stdout       io.Writer
	clock        timing.Clock
	reportWriter *report.Writer
	reportFormat report.Format
	logger       *slog.Logger
}

func WithIO(stdin io.Reader, stdout io.Writer) QuizOption {
	return func(o *quizOptions) {
		o.stdin = stdin
		o.stdout = stdout
	}
}

// WithClock sets the clock used for the completion time of reports
func WithClock(clock timing.Clock) QuizOption {
	return func(o *quizOptions) {
		o.clock = clock
	}
}

// WithReport saves a report of the finished session
func WithReport(writer *report.Writer, format report.Format) QuizOption {
	return func(o *quizOptions) {
		o.reportWriter = writer
		o.reportFormat = format
	}
}

func WithLogger(logger *slog.Logger) QuizOption {
	return func(o *quizOptions) {
		o.logger = logger
	}
}

func NewQuizCLI(machine *session.Machine, params quiz.StartParams, opts ...QuizOption) *QuizCLI {
	options := quizOptions{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		clock:  timing.SystemClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &QuizCLI{
		InteractiveQuizCLI: newInteractiveQuizCLI(options.stdin, options.stdout),
		machine:            machine,
		params:             params,
		clock:              options.clock,
		reportWriter:       options.reportWriter,
		reportFormat:       options.reportFormat,
		logger:             options.logger,
	}
}

type commandType int

const (
	commandUnknown commandType = iota
	commandAnswer
	commandProceed
	commandEnd
	commandResync
)

// parseCommand reads a line of input. Answers are numbered from 1 on screen and returned 0-based.
func parseCommand(input string, optionCount int) (commandType, int) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "n", "next":
		return commandProceed, 0
	case "q", "quit", "exit":
		return commandEnd, 0
	case "r", "refresh":
		return commandResync, 0
	}
	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || number < 1 || number > optionCount {
		return commandUnknown, 0
	}
	return commandAnswer, number - 1
}

// Session runs one step of the quiz: it acts on the current phase and returns errEnd once the session is done
func (r *QuizCLI) Session(ctx context.Context) error {
	snapshot, changed := r.machine.Watch()
	switch snapshot.Phase {
	case session.PhaseIdle:
		return r.start(ctx)
	case session.PhaseLoading, session.PhaseAnswerPending, session.PhaseFeedback:
		select {
		case <-ctx.Done():
		case <-changed:
		}
		return nil
	case session.PhaseActive:
		if question, ok := snapshot.Question(); ok {
			return r.askQuestion(ctx, snapshot, question)
		}
		if content, ok := snapshot.Content(); ok {
			return r.showContent(ctx, content)
		}
		return fmt.Errorf("unexpected unit %T", snapshot.Unit)
	case session.PhaseCompleted:
		r.finish(snapshot)
		return errEnd
	}
	return fmt.Errorf("unexpected phase %s", snapshot.Phase)
}

func (r *QuizCLI) start(ctx context.Context) error {
	r.printf("Starting %s: %s with %d questions...\n", r.params.Course, r.params.Topic, r.params.NumQuestions)
	err := r.machine.Start(ctx, r.params)
	if err == nil {
		return nil
	}

	var validationErr *quiz.ValidationError
	if errors.As(err, &validationErr) {
		return err
	}
	_, _ = r.red.Fprintln(r.stdoutWriter, quiz.UserMessage(err))
	r.printf("Press enter to retry, or q to quit: ")
	input, readErr := r.readLine()
	if readErr != nil || strings.EqualFold(input, "q") {
		return errEnd
	}
	return nil
}

func (r *QuizCLI) askQuestion(ctx context.Context, snapshot session.Snapshot, question quiz.Question) error {
	r.println()
	r.printf("Question %d/%d  (score: %s, level: %s)\n",
		snapshot.Progress.Answered+1,
		snapshot.Session.TargetQuestionCount,
		formatScore(snapshot.Progress.Score),
		snapshot.Progress.Level,
	)
	_, _ = r.bold.Fprintln(r.stdoutWriter, question.Text)
	for i, option := range question.Options {
		r.printf("  %d) %s\n", i+1, option)
	}
	r.printf("Your answer (1-%d, r: refresh progress, q: end): ", len(question.Options))

	input, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return r.endEarly()
		}
		return fmt.Errorf("error reading input: %w", err)
	}

	command, index := parseCommand(input, len(question.Options))
	switch command {
	case commandAnswer:
		return r.submit(ctx, question, index)
	case commandEnd:
		return r.endEarly()
	case commandResync:
		r.resync(ctx)
		return nil
	default:
		r.printf("Please enter a number between 1 and %d.\n", len(question.Options))
		return nil
	}
}

func (r *QuizCLI) submit(ctx context.Context, question quiz.Question, index int) error {
	if err := r.machine.SubmitAnswer(ctx, index); err != nil {
		if errors.Is(err, quiz.ErrSessionCompleted) {
			return nil
		}
		r.logger.Debug("failed to submit an answer",
			slog.String("questionID", question.ID),
			slog.Any("error", err),
		)
		_, _ = r.red.Fprintln(r.stdoutWriter, quiz.UserMessage(err))
		return nil
	}

	snapshot := r.machine.Snapshot()
	if snapshot.Feedback == nil {
		return nil
	}
	feedback := snapshot.Feedback
	correctAnswer := ""
	if question.HasOption(feedback.CorrectIndex) {
		correctAnswer = question.Options[feedback.CorrectIndex]
	}
	if feedback.Correct {
		r.printf("✅ ")
		_, _ = r.green.Fprintln(r.stdoutWriter, "It's correct.")
	} else {
		r.printf("❌ ")
		_, _ = r.red.Fprintf(r.stdoutWriter, "It's wrong. The answer is %s\n", r.italic.Sprintf("%q", correctAnswer))
	}
	if feedback.Explanation != "" {
		r.printf("   Explanation: %s\n", feedback.Explanation)
	}
	r.printf("   Score: %s, level: %s\n", formatScore(snapshot.Progress.Score), snapshot.Progress.Level)
	return nil
}

func (r *QuizCLI) showContent(ctx context.Context, content quiz.Content) error {
	r.println()
	_, _ = r.bold.Fprintln(r.stdoutWriter, content.Title)
	r.println(content.Body)
	r.printf("Press enter to continue (r: refresh progress, q: end): ")

	input, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return r.endEarly()
		}
		return fmt.Errorf("error reading input: %w", err)
	}

	command, _ := parseCommand(input, 0)
	switch command {
	case commandProceed:
		if err := r.machine.Proceed(); err != nil && !errors.Is(err, quiz.ErrSessionCompleted) {
			return fmt.Errorf("machine.Proceed() > %w", err)
		}
	case commandEnd:
		return r.endEarly()
	case commandResync:
		r.resync(ctx)
	default:
		r.println("Press enter to continue.")
	}
	return nil
}

func (r *QuizCLI) resync(ctx context.Context) {
	if err := r.machine.Resync(ctx); err != nil {
		_, _ = r.red.Fprintln(r.stdoutWriter, quiz.UserMessage(err))
		return
	}
	progress := r.machine.Snapshot().Progress
	r.printf("Progress refreshed: %d answered, score: %s, level: %s\n",
		progress.Answered, formatScore(progress.Score), progress.Level)
}

func (r *QuizCLI) endEarly() error {
	if _, err := r.machine.EndEarly(); err != nil {
		return fmt.Errorf("machine.EndEarly() > %w", err)
	}
	return nil
}

func (r *QuizCLI) finish(snapshot session.Snapshot) {
	r.println()
	switch snapshot.Completion {
	case session.CompletionEndedEarly:
		_, _ = r.bold.Fprintln(r.stdoutWriter, "Session ended.")
	case session.CompletionContractGap:
		_, _ = r.red.Fprintln(r.stdoutWriter, "The server sent no further question, so the session has ended.")
	default:
		_, _ = r.bold.Fprintln(r.stdoutWriter, "Session complete!")
	}

	result := report.FromSnapshot(snapshot, r.clock.Now())
	PrintSummary(r.stdoutWriter, result)

	if r.reportWriter == nil {
		return
	}
	path, err := r.reportWriter.Save(result, r.reportFormat)
	if err != nil {
		r.logger.Error("failed to save a report",
			slog.String("sessionID", snapshot.Session.ID),
			slog.Any("error", err),
		)
		_, _ = r.red.Fprintf(r.stdoutWriter, "Failed to save the report: %v\n", err)
		return
	}
	r.printf("Report written to: %s\n", path)
}
