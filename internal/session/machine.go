package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/at-ishikawa/microlearn/internal/backend"
	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/timing"
	"github.com/at-ishikawa/microlearn/internal/validation"
)

// DefaultObservationDelay is how long feedback stays visible before the next unit is revealed
const DefaultObservationDelay = 3 * time.Second

// Machine owns one session: its identity, the current unit, the progress snapshot and the phase.
// All methods are safe for concurrent use; network calls are made without holding the lock.
type Machine struct {
	client    backend.Client
	clock     timing.Clock
	delay     time.Duration
	logger    *slog.Logger
	validator *validation.Validator

	mu        sync.Mutex
	phase     Phase
	session   quiz.Session
	unit      quiz.Unit
	progress  quiz.Progress
	stopwatch *timing.Stopwatch

	// unitSeq identifies the current unit; a response for an older unit is discarded.
	unitSeq uint64
	// generation changes on every phase transition; a delayed reveal only applies to its own generation.
	generation uint64

	answered    bool
	selected    *int
	feedback    *Feedback
	pendingNext quiz.Unit
	completion  CompletionReason
	lastErr     error

	changed chan struct{}
}

// Option configures a Machine
type Option func(*Machine)

func WithClock(clock timing.Clock) Option {
	return func(m *Machine) {
		m.clock = clock
	}
}

// WithObservationDelay sets the pause between feedback and the next unit. Negative values are ignored.
func WithObservationDelay(delay time.Duration) Option {
	return func(m *Machine) {
		if delay >= 0 {
			m.delay = delay
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

func New(client backend.Client, opts ...Option) (*Machine, error) {
	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("validation.New() > %w", err)
	}

	m := &Machine{
		client:    client,
		clock:     timing.SystemClock(),
		delay:     DefaultObservationDelay,
		logger:    slog.Default(),
		validator: validator,
		phase:     PhaseIdle,
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.stopwatch = timing.NewStopwatch(m.clock)
	return m, nil
}

// Snapshot returns the current state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Watch returns the current state and a channel that is closed at the next change
func (m *Machine) Watch() (Snapshot, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(), m.changed
}

// Start opens a new session. It is only allowed while Idle.
// On failure the machine returns to Idle and the error is returned.
func (m *Machine) Start(ctx context.Context, params quiz.StartParams) error {
	if err := m.validateStart(params); err != nil {
		return err
	}

	m.mu.Lock()
	if m.phase != PhaseIdle {
		err := m.phaseErrorLocked()
		m.mu.Unlock()
		return err
	}
	m.transitionLocked(PhaseLoading)
	m.mu.Unlock()

	response, err := m.client.Start(ctx, backend.StartRequest{
		UserID:       params.UserID,
		Course:       params.Course,
		Topic:        params.Topic,
		NumQuestions: params.NumQuestions,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseLoading {
		return quiz.ErrInvalidPhase
	}
	if err != nil {
		m.lastErr = err
		m.transitionLocked(PhaseIdle)
		return fmt.Errorf("client.Start() > %w", err)
	}

	m.session = quiz.Session{
		ID:                  response.SessionID,
		UserID:              params.UserID,
		Course:              params.Course,
		Topic:               params.Topic,
		TargetQuestionCount: params.NumQuestions,
	}
	m.progress = response.Progress.Clone()
	m.completion = CompletionNone
	m.lastErr = nil
	m.setUnitLocked(response.Question)
	m.transitionLocked(PhaseActive)
	return nil
}

func (m *Machine) validateStart(params quiz.StartParams) error {
	err := m.validator.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrors validation.Errors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return &quiz.ValidationError{Field: fieldErrors[0].Field, Message: fieldErrors.Error()}
	}
	return &quiz.ValidationError{Message: err.Error()}
}

// SubmitAnswer answers the current question. Only one answer per question is accepted;
// a second call while the first is pending or after it returns ErrAlreadyAnswered.
// On a failed request the lock is released so the learner may retry.
func (m *Machine) SubmitAnswer(ctx context.Context, index int) error {
	m.mu.Lock()
	if m.phase == PhaseCompleted {
		m.mu.Unlock()
		return quiz.ErrSessionCompleted
	}
	if m.answered {
		m.mu.Unlock()
		return quiz.ErrAlreadyAnswered
	}
	question, ok := m.unit.(quiz.Question)
	if m.phase != PhaseActive || !ok {
		m.mu.Unlock()
		return quiz.ErrInvalidPhase
	}
	if !question.HasOption(index) {
		m.mu.Unlock()
		return &quiz.ValidationError{
			Field:   "answer_index",
			Message: fmt.Sprintf("answer must be between 0 and %d", len(question.Options)-1),
		}
	}

	m.answered = true
	m.selected = &index
	seq := m.unitSeq
	startedAt := m.stopwatch.StartedAt()
	submission := quiz.AnswerSubmission{
		SessionID:   m.session.ID,
		QuestionID:  question.ID,
		AnswerIndex: index,
		TimeTaken:   m.stopwatch.Lap(),
	}
	m.transitionLocked(PhaseAnswerPending)
	m.mu.Unlock()

	response, err := m.client.SubmitAnswer(ctx, submission)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unitSeq != seq || m.phase != PhaseAnswerPending {
		m.logger.Info("discarding stale answer response",
			slog.String("sessionID", submission.SessionID),
			slog.String("questionID", submission.QuestionID),
			slog.String("phase", m.phase.String()),
		)
		if m.phase == PhaseCompleted {
			return quiz.ErrSessionCompleted
		}
		return nil
	}

	if err != nil {
		m.answered = false
		m.selected = nil
		m.stopwatch.Restore(startedAt)
		m.lastErr = err
		m.transitionLocked(PhaseActive)
		return fmt.Errorf("client.SubmitAnswer() > %w", err)
	}

	if response.Progress.Answered < m.progress.Answered {
		m.logger.Warn("backend reported fewer answered questions than before",
			slog.String("sessionID", m.session.ID),
			slog.Int("before", m.progress.Answered),
			slog.Int("after", response.Progress.Answered),
		)
	}
	m.progress = response.Progress.Clone()
	m.feedback = &Feedback{
		Correct:      response.Correct,
		CorrectIndex: response.CorrectIndex,
		Explanation:  response.Explanation,
	}
	m.pendingNext = response.Next
	m.lastErr = nil
	m.transitionLocked(PhaseFeedback)

	generation := m.generation
	m.clock.AfterFunc(m.delay, func() {
		m.reveal(generation)
	})
	return nil
}

// reveal applies the decision after the observation delay.
// It does nothing unless the machine is still in the Feedback phase it was scheduled from.
func (m *Machine) reveal(generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseFeedback || m.generation != generation {
		return
	}

	next := m.pendingNext
	m.clearAnswerLocked()

	if m.progress.Answered >= m.session.TargetQuestionCount {
		m.completeLocked(CompletionTargetReached)
		return
	}

	switch unit := next.(type) {
	case quiz.Content:
		m.setUnitLocked(unit)
		m.transitionLocked(PhaseActive)
	case quiz.Question:
		m.setUnitLocked(unit)
		m.transitionLocked(PhaseActive)
	default:
		m.lastErr = &quiz.ContractMismatchError{
			Op:     "answer",
			Detail: fmt.Sprintf("no next unit after %d of %d questions", m.progress.Answered, m.session.TargetQuestionCount),
		}
		m.completeLocked(CompletionContractGap)
	}
}

// Proceed moves from a content card to the question it carries. No request is made.
func (m *Machine) Proceed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseCompleted {
		return quiz.ErrSessionCompleted
	}
	content, ok := m.unit.(quiz.Content)
	if m.phase != PhaseActive || !ok {
		return quiz.ErrInvalidPhase
	}

	m.setUnitLocked(content.NextQuestion)
	m.transitionLocked(PhaseActive)
	return nil
}

// EndEarly completes the session with whatever progress has been confirmed so far.
// It is allowed from Active, AnswerPending and Feedback, and is a no-op once Completed.
func (m *Machine) EndEarly() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case PhaseCompleted:
		return m.snapshotLocked(), nil
	case PhaseActive, PhaseAnswerPending, PhaseFeedback:
	default:
		return m.snapshotLocked(), quiz.ErrInvalidPhase
	}

	m.clearAnswerLocked()
	m.completeLocked(CompletionEndedEarly)
	return m.snapshotLocked(), nil
}

// Resync replaces the progress with a fresh snapshot from the backend.
// It is ignored if the session completed while the request was in flight.
func (m *Machine) Resync(ctx context.Context) error {
	m.mu.Lock()
	if m.phase == PhaseCompleted {
		m.mu.Unlock()
		return quiz.ErrSessionCompleted
	}
	if m.phase != PhaseActive && m.phase != PhaseFeedback {
		m.mu.Unlock()
		return quiz.ErrInvalidPhase
	}
	sessionID := m.session.ID
	m.mu.Unlock()

	progress, err := m.client.FetchProgress(ctx, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.ID != sessionID || (m.phase != PhaseActive && m.phase != PhaseFeedback) {
		return nil
	}
	if err != nil {
		m.lastErr = err
		m.notifyLocked()
		return fmt.Errorf("client.FetchProgress() > %w", err)
	}
	m.progress = progress.Clone()
	m.lastErr = nil
	m.notifyLocked()
	return nil
}

// Reset discards a completed session so that a new one can be started
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case PhaseIdle:
		return nil
	case PhaseCompleted:
	default:
		return quiz.ErrInvalidPhase
	}

	m.session = quiz.Session{}
	m.progress = quiz.Progress{}
	m.unit = nil
	m.completion = CompletionNone
	m.lastErr = nil
	m.clearAnswerLocked()
	m.transitionLocked(PhaseIdle)
	return nil
}

func (m *Machine) setUnitLocked(unit quiz.Unit) {
	m.unit = unit
	m.unitSeq++
	m.answered = false
	if _, ok := unit.(quiz.Question); ok {
		m.stopwatch.Start()
	}
}

func (m *Machine) clearAnswerLocked() {
	m.answered = false
	m.selected = nil
	m.feedback = nil
	m.pendingNext = nil
}

func (m *Machine) completeLocked(reason CompletionReason) {
	m.unit = nil
	m.unitSeq++
	m.completion = reason
	m.transitionLocked(PhaseCompleted)
}

func (m *Machine) transitionLocked(to Phase) {
	m.logger.Debug("session transition",
		slog.String("sessionID", m.session.ID),
		slog.String("from", m.phase.String()),
		slog.String("to", to.String()),
	)
	m.phase = to
	m.generation++
	m.notifyLocked()
}

func (m *Machine) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Machine) phaseErrorLocked() error {
	if m.phase == PhaseCompleted {
		return quiz.ErrSessionCompleted
	}
	return quiz.ErrInvalidPhase
}

func (m *Machine) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		Phase:      m.phase,
		Session:    m.session,
		Unit:       m.unit,
		Progress:   m.progress.Clone(),
		Answered:   m.answered,
		Completion: m.completion,
		Err:        m.lastErr,
	}
	if m.selected != nil {
		selected := *m.selected
		snapshot.SelectedAnswer = &selected
	}
	if m.feedback != nil {
		feedback := *m.feedback
		snapshot.Feedback = &feedback
	}
	return snapshot
}
