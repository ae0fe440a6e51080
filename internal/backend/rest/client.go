// Package rest implements backend.Client over the backend's HTTP/JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"resty.dev/v3"

	"github.com/at-ishikawa/microlearn/internal/backend"
	"github.com/at-ishikawa/microlearn/internal/quiz"
)

const (
	opStart    = "start"
	opAnswer   = "answer"
	opProgress = "progress"
	opHistory  = "history"
)

type Client struct {
	httpClient *resty.Client
	logger     *slog.Logger
}

var _ backend.Client = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithAuthToken sends the opaque credential as a bearer token on every call
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.httpClient.SetAuthToken(token)
		}
	}
}

// WithTimeout bounds every request
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.SetTimeout(timeout)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	httpClient.SetHeader("Content-Type", "application/json")
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetRetryCount(0)

	client := &Client{
		httpClient: httpClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

type startPayload struct {
	SessionID string        `json:"session_id"`
	Question  quiz.Question `json:"question"`
	Progress  quiz.Progress `json:"progress"`
}

type answerPayload struct {
	Correct      *bool            `json:"correct"`
	CorrectIndex int              `json:"correct_index"`
	Explanation  string           `json:"explanation"`
	Progress     quiz.Progress    `json:"progress"`
	NextStep     *nextStepPayload `json:"next_step"`
	NextQuestion *quiz.Question   `json:"next_question"`
}

type nextStepPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	nextStepQuestion = "question"
	nextStepContent  = "content"
)

// errorEnvelope covers both the backend's {"error": ...} bodies and framework {"detail": ...} bodies
type errorEnvelope struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func (client *Client) Start(ctx context.Context, request backend.StartRequest) (backend.StartResponse, error) {
	body, err := client.do(ctx, opStart, http.MethodPost, "/start", nil, request)
	if err != nil {
		return backend.StartResponse{}, err
	}
	if err := validateContract(schemaStartResponse, body); err != nil {
		return backend.StartResponse{}, &quiz.ContractMismatchError{Op: opStart, Detail: "start response", Err: err}
	}

	var payload startPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return backend.StartResponse{}, &quiz.ContractMismatchError{Op: opStart, Detail: "json.Unmarshal", Err: err}
	}
	return backend.StartResponse{
		SessionID: payload.SessionID,
		Question:  payload.Question,
		Progress:  payload.Progress,
	}, nil
}

func (client *Client) SubmitAnswer(ctx context.Context, submission quiz.AnswerSubmission) (backend.AnswerResponse, error) {
	body, err := client.do(ctx, opAnswer, http.MethodPost, "/answer", nil, submission)
	if err != nil {
		return backend.AnswerResponse{}, err
	}
	if err := validateContract(schemaAnswerResponse, body); err != nil {
		return backend.AnswerResponse{}, &quiz.ContractMismatchError{Op: opAnswer, Detail: "answer response", Err: err}
	}

	var payload answerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return backend.AnswerResponse{}, &quiz.ContractMismatchError{Op: opAnswer, Detail: "json.Unmarshal", Err: err}
	}

	next, err := decodeNextUnit(payload)
	if err != nil {
		return backend.AnswerResponse{}, err
	}

	correct := submission.AnswerIndex == payload.CorrectIndex
	if payload.Correct != nil {
		correct = *payload.Correct
	}
	return backend.AnswerResponse{
		Correct:      correct,
		CorrectIndex: payload.CorrectIndex,
		Explanation:  payload.Explanation,
		Progress:     payload.Progress,
		Next:         next,
	}, nil
}

// decodeNextUnit resolves the next_step union. A missing discriminator means a question,
// and the older next_question field is used when next_step is absent.
func decodeNextUnit(payload answerPayload) (quiz.Unit, error) {
	if payload.NextStep == nil {
		if payload.NextQuestion == nil {
			return nil, nil
		}
		return *payload.NextQuestion, nil
	}

	switch payload.NextStep.Type {
	case "", nextStepQuestion:
		var question quiz.Question
		if err := json.Unmarshal(payload.NextStep.Data, &question); err != nil {
			return nil, &quiz.ContractMismatchError{Op: opAnswer, Detail: "next_step.data", Err: err}
		}
		if err := checkQuestion(question); err != nil {
			return nil, &quiz.ContractMismatchError{Op: opAnswer, Detail: "next_step.data", Err: err}
		}
		return question, nil
	case nextStepContent:
		var content quiz.Content
		if err := json.Unmarshal(payload.NextStep.Data, &content); err != nil {
			return nil, &quiz.ContractMismatchError{Op: opAnswer, Detail: "next_step.data", Err: err}
		}
		if err := checkQuestion(content.NextQuestion); err != nil {
			return nil, &quiz.ContractMismatchError{Op: opAnswer, Detail: "next_step.data.next_question", Err: err}
		}
		return content, nil
	default:
		return nil, &quiz.ContractMismatchError{
			Op:     opAnswer,
			Detail: fmt.Sprintf("unknown next_step type %q", payload.NextStep.Type),
		}
	}
}

func checkQuestion(question quiz.Question) error {
	if question.ID == "" {
		return errors.New("question id is empty")
	}
	if len(question.Options) == 0 {
		return errors.New("question has no options")
	}
	return nil
}

func (client *Client) FetchProgress(ctx context.Context, sessionID string) (quiz.Progress, error) {
	body, err := client.do(ctx, opProgress, http.MethodGet, "/progress/{sessionID}", map[string]string{"sessionID": sessionID}, nil)
	if err != nil {
		return quiz.Progress{}, err
	}
	if err := validateContract(schemaProgress, body); err != nil {
		return quiz.Progress{}, &quiz.ContractMismatchError{Op: opProgress, Detail: "progress response", Err: err}
	}

	var progress quiz.Progress
	if err := json.Unmarshal(body, &progress); err != nil {
		return quiz.Progress{}, &quiz.ContractMismatchError{Op: opProgress, Detail: "json.Unmarshal", Err: err}
	}
	return progress, nil
}

func (client *Client) FetchHistory(ctx context.Context, userID string) ([]quiz.HistoryEntry, error) {
	body, err := client.do(ctx, opHistory, http.MethodGet, "/history/{userID}", map[string]string{"userID": userID}, nil)
	if err != nil {
		return nil, err
	}
	if err := validateContract(schemaHistory, body); err != nil {
		return nil, &quiz.ContractMismatchError{Op: opHistory, Detail: "history response", Err: err}
	}

	var entries []quiz.HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &quiz.ContractMismatchError{Op: opHistory, Detail: "json.Unmarshal", Err: err}
	}
	return entries, nil
}

// do sends one request and returns the raw body of a successful response.
// Failures, including a 2xx body carrying an error envelope, become *quiz.TransportError.
func (client *Client) do(
	ctx context.Context,
	op, method, url string,
	pathParams map[string]string,
	requestBody any,
) ([]byte, error) {
	requestID := uuid.NewString()
	request := client.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID)
	if pathParams != nil {
		request.SetPathParams(pathParams)
	}
	if requestBody != nil {
		request.SetBody(requestBody)
	}

	startedAt := time.Now()
	response, err := request.Execute(method, url)
	if err != nil {
		client.logger.Debug("backend request failed",
			slog.String("op", op),
			slog.String("requestID", requestID),
			slog.Any("error", err),
		)
		return nil, &quiz.TransportError{
			Op:      op,
			Message: quiz.GenericTransportMessage,
			Err:     fmt.Errorf("httpClient.Execute > %w", err),
		}
	}

	body := []byte(response.String())
	client.logger.Debug("backend request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("requestID", requestID),
		slog.Int("status", response.StatusCode()),
		slog.Duration("duration", time.Since(startedAt)),
	)

	if response.IsError() || response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		message := backendMessage(body)
		if message == "" {
			message = quiz.GenericTransportMessage
		}
		return nil, &quiz.TransportError{
			Op:         op,
			StatusCode: response.StatusCode(),
			Message:    message,
			Err:        fmt.Errorf("response error %d: %s", response.StatusCode(), response.String()),
		}
	}

	if message := backendMessage(body); message != "" {
		return nil, &quiz.TransportError{
			Op:         op,
			StatusCode: response.StatusCode(),
			Message:    message,
		}
	}
	return body, nil
}

// backendMessage extracts the diagnostic from an error envelope, or "" when body is not one
func backendMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var envelope errorEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	if len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return detail
	}
	return strings.TrimSpace(string(envelope.Detail))
}
