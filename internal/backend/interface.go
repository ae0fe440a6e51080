package backend

import (
	"context"

	"github.com/at-ishikawa/microlearn/internal/quiz"
)

//go:generate mockgen -source=interface.go -destination=../mocks/backend/mock_client.go -package=mock_backend

// Client performs the session requests against the quiz backend.
// It does not retry and does not cache; every call is a fresh request.
type Client interface {
	Start(ctx context.Context, request StartRequest) (StartResponse, error)
	SubmitAnswer(ctx context.Context, submission quiz.AnswerSubmission) (AnswerResponse, error)
	FetchProgress(ctx context.Context, sessionID string) (quiz.Progress, error)
	FetchHistory(ctx context.Context, userID string) ([]quiz.HistoryEntry, error)
	Close() error
}

// StartRequest opens a new session
type StartRequest struct {
	UserID       string `json:"user_id"`
	Course       string `json:"course"`
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

// StartResponse is the first unit of a new session
type StartResponse struct {
	SessionID string
	Question  quiz.Question
	Progress  quiz.Progress
}

// AnswerResponse is the result of one answer.
// Next is nil when the backend sent neither next_step nor next_question.
type AnswerResponse struct {
	Correct      bool
	CorrectIndex int
	Explanation  string
	Progress     quiz.Progress
	Next         quiz.Unit
}
