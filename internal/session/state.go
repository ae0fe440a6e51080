// Package session drives one quiz attempt from start to completion.
package session

import (
	"github.com/at-ishikawa/microlearn/internal/quiz"
)

// Phase is the current phase of the session.
type Phase int

const (
	PhaseIdle          Phase = iota // No session yet
	PhaseLoading                    // Start request in flight
	PhaseActive                     // A unit is shown and can be acted on
	PhaseAnswerPending              // Answer request in flight
	PhaseFeedback                   // Correctness is shown, next unit held back
	PhaseCompleted                  // Terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseAnswerPending:
		return "answer_pending"
	case PhaseFeedback:
		return "feedback"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// CompletionReason records why a session reached PhaseCompleted.
type CompletionReason int

const (
	CompletionNone CompletionReason = iota
	// CompletionTargetReached means answered reached the target question count
	CompletionTargetReached
	// CompletionEndedEarly means the learner ended the session
	CompletionEndedEarly
	// CompletionContractGap means the backend sent no next unit before the target was reached
	CompletionContractGap
)

func (r CompletionReason) String() string {
	switch r {
	case CompletionTargetReached:
		return "target_reached"
	case CompletionEndedEarly:
		return "ended_early"
	case CompletionContractGap:
		return "contract_gap"
	}
	return "none"
}

// Feedback is the backend's verdict on the submitted answer
type Feedback struct {
	Correct      bool
	CorrectIndex int
	Explanation  string
}

// Snapshot is an immutable view of the machine
type Snapshot struct {
	Phase Phase

	// Session is zero while Idle and Loading.
	Session quiz.Session

	// Unit is nil while Idle, Loading and Completed.
	Unit quiz.Unit

	Progress quiz.Progress

	// Answered is the single-answer lock of the current unit.
	Answered bool

	// SelectedAnswer is set from submission until the next unit is revealed.
	SelectedAnswer *int

	// Feedback is set while in PhaseFeedback.
	Feedback *Feedback

	Completion CompletionReason

	// Err is the error of the last failed operation, cleared by the next success.
	Err error
}

// Question returns the current unit when it is a question
func (s Snapshot) Question() (quiz.Question, bool) {
	question, ok := s.Unit.(quiz.Question)
	return question, ok
}

// Content returns the current unit when it is a content card
func (s Snapshot) Content() (quiz.Content, bool) {
	content, ok := s.Unit.(quiz.Content)
	return content, ok
}
