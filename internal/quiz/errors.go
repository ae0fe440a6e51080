package quiz

import (
	"errors"
	"fmt"
)

// GenericTransportMessage is shown when the backend gave no diagnostic of its own
const GenericTransportMessage = "the server could not be reached, please try again"

var (
	// ErrInvalidPhase is returned when an operation is not allowed in the current phase
	ErrInvalidPhase = errors.New("operation not allowed in the current phase")
	// ErrAlreadyAnswered is returned for a second answer to the same unit
	ErrAlreadyAnswered = errors.New("the current question has already been answered")
	// ErrSessionCompleted is returned for operations on a completed session
	ErrSessionCompleted = errors.New("the session is completed")
)

// TransportError is a network or HTTP failure talking to the backend
type TransportError struct {
	Op         string
	StatusCode int
	// Message is the backend's diagnostic, or GenericTransportMessage
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FromBackend reports whether the backend itself supplied the diagnostic
func (e *TransportError) FromBackend() bool {
	return e.Message != "" && e.Message != GenericTransportMessage
}

// ContractMismatchError means a response did not have the shape the client expects
type ContractMismatchError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ContractMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Detail)
}

func (e *ContractMismatchError) Unwrap() error {
	return e.Err
}

// ValidationError is malformed local input, rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// UserMessage returns the text a learner should see for err
func UserMessage(err error) string {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Message
	}
	var mismatchErr *ContractMismatchError
	if errors.As(err, &mismatchErr) {
		return "the server sent an unexpected response, please try again"
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	return err.Error()
}
