// Package reconnect fetches session progress again after the connection to the backend was lost.
package reconnect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"github.com/at-ishikawa/microlearn/internal/backend"
	"github.com/at-ishikawa/microlearn/internal/quiz"
)

// Policy bounds the retries of a progress fetch
type Policy struct {
	// Attempts is the total number of requests, including the first
	Attempts uint          `mapstructure:"attempts" validate:"min=1,max=10"`
	Delay    time.Duration `mapstructure:"delay" validate:"min=0"`
}

// DefaultPolicy is used when no policy is configured
var DefaultPolicy = Policy{
	Attempts: 3,
	Delay:    time.Second,
}

// IsRetryable reports whether another request could succeed.
// Failures the backend explained, such as an unknown session, and malformed responses are final.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var transportErr *quiz.TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return !transportErr.FromBackend()
}

// FetchProgress fetches the progress of sessionID, retrying connection failures with a fixed delay
func FetchProgress(
	ctx context.Context,
	client backend.Client,
	sessionID string,
	policy Policy,
	logger *slog.Logger,
) (quiz.Progress, error) {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var result quiz.Progress
	if err := retry.Do(
		func() error {
			progress, err := client.FetchProgress(ctx, sessionID)
			if err != nil {
				if !IsRetryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = progress
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("retrying progress fetch",
				slog.String("sessionID", sessionID),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err),
			)
		}),
	); err != nil {
		return quiz.Progress{}, err
	}
	return result, nil
}

// Client retries FetchProgress of the wrapped client under a policy.
// Start and SubmitAnswer are passed through unchanged; they are never retried.
type Client struct {
	backend.Client
	policy Policy
	logger *slog.Logger
}

var _ backend.Client = (*Client)(nil)

func NewClient(client backend.Client, policy Policy, logger *slog.Logger) *Client {
	return &Client{
		Client: client,
		policy: policy,
		logger: logger,
	}
}

func (c *Client) FetchProgress(ctx context.Context, sessionID string) (quiz.Progress, error) {
	return FetchProgress(ctx, c.Client, sessionID, c.policy, c.logger)
}
