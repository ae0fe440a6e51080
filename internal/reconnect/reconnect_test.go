package reconnect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/microlearn/internal/backend"
	mock_backend "github.com/at-ishikawa/microlearn/internal/mocks/backend"
	"github.com/at-ishikawa/microlearn/internal/quiz"
)

var testPolicy = Policy{Attempts: 3, Delay: time.Millisecond}

func connectionError() error {
	return &quiz.TransportError{Op: "progress", Message: quiz.GenericTransportMessage, Err: errors.New("connection refused")}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection failure", err: connectionError(), want: true},
		{name: "wrapped connection failure", err: fmt.Errorf("wrap > %w", connectionError()), want: true},
		{name: "server error without message", err: &quiz.TransportError{Op: "progress", StatusCode: 502, Message: quiz.GenericTransportMessage}, want: true},
		{name: "backend diagnostic", err: &quiz.TransportError{Op: "progress", StatusCode: 404, Message: "Session not found"}, want: false},
		{name: "contract mismatch", err: &quiz.ContractMismatchError{Op: "progress", Detail: "progress response"}, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestFetchProgress(t *testing.T) {
	want := quiz.Progress{Score: 20, Answered: 2, Level: quiz.LevelMedium}

	tests := []struct {
		name         string
		setupMock    func(client *mock_backend.MockClient)
		want         quiz.Progress
		wantErr      bool
		wantErrCheck func(t *testing.T, err error)
	}{
		{
			name: "succeeds first time",
			setupMock: func(client *mock_backend.MockClient) {
				client.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(want, nil)
			},
			want: want,
		},
		{
			name: "recovers after connection failures",
			setupMock: func(client *mock_backend.MockClient) {
				gomock.InOrder(
					client.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(quiz.Progress{}, connectionError()),
					client.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(quiz.Progress{}, connectionError()),
					client.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(want, nil),
				)
			},
			want: want,
		},
		{
			name: "gives up after all attempts",
			setupMock: func(client *mock_backend.MockClient) {
				client.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(quiz.Progress{}, connectionError()).Times(3)
			},
			wantErr: true,
			wantErrCheck: func(t *testing.T, err error) {
				var transportErr *quiz.TransportError
				assert.True(t, errors.As(err, &transportErr))
			},
		},
		{
			name: "does not retry a backend diagnostic",
			setupMock: func(client *mock_backend.MockClient) {
				client.EXPECT().FetchProgress(gomock.Any(), "sess_1").
					Return(quiz.Progress{}, &quiz.TransportError{Op: "progress", StatusCode: 404, Message: "Session not found"}).
					Times(1)
			},
			wantErr: true,
			wantErrCheck: func(t *testing.T, err error) {
				assert.Equal(t, "Session not found", quiz.UserMessage(err))
			},
		},
		{
			name: "does not retry a contract mismatch",
			setupMock: func(client *mock_backend.MockClient) {
				client.EXPECT().FetchProgress(gomock.Any(), "sess_1").
					Return(quiz.Progress{}, &quiz.ContractMismatchError{Op: "progress", Detail: "progress response"}).
					Times(1)
			},
			wantErr: true,
			wantErrCheck: func(t *testing.T, err error) {
				var mismatchErr *quiz.ContractMismatchError
				assert.True(t, errors.As(err, &mismatchErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mock_backend.NewMockClient(ctrl)
			tt.setupMock(client)

			got, err := FetchProgress(context.Background(), client, "sess_1", testPolicy, nil)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrCheck != nil {
					tt.wantErrCheck(t, err)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mock_backend.NewMockClient(ctrl)
	want := quiz.Progress{Score: 10, Answered: 1, Level: quiz.LevelEasy}

	gomock.InOrder(
		inner.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(quiz.Progress{}, connectionError()),
		inner.EXPECT().FetchProgress(gomock.Any(), "sess_1").Return(want, nil),
	)
	inner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(backend.StartResponse{}, connectionError()).Times(1)

	client := NewClient(inner, testPolicy, nil)
	got, err := client.FetchProgress(context.Background(), "sess_1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = client.Start(context.Background(), backend.StartRequest{})
	assert.Error(t, err)
}
