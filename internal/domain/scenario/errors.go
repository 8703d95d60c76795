package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// NetworkError records that a live call failed instead of producing a response.
type NetworkError struct {
	ExceptionType string
	Message       *string
}

type sentinel struct {
	name string
	err  error
}

// sentinels lists the errors that replay as themselves, in lookup order.
var sentinels = []sentinel{
	{"context.Canceled", context.Canceled},
	{"context.DeadlineExceeded", context.DeadlineExceeded},
	{"os.ErrDeadlineExceeded", os.ErrDeadlineExceeded},
	{"io.ErrUnexpectedEOF", io.ErrUnexpectedEOF},
	{"io.EOF", io.EOF},
}

func sentinelFor(name string) error {
	for _, s := range sentinels {
		if s.name == name {
			return s.err
		}
	}
	return nil
}

// NewNetworkError captures err for recording. Well-known sentinels are stored
// by name so replay can restore them; anything else is stored by dynamic type.
func NewNetworkError(err error) *NetworkError {
	if err == nil {
		return nil
	}
	ne := &NetworkError{ExceptionType: fmt.Sprintf("%T", err)}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			ne.ExceptionType = s.name
			break
		}
	}
	msg := err.Error()
	ne.Message = &msg
	return ne
}

// Err converts the recorded failure into an error returned on replay.
func (e *NetworkError) Err() error {
	if e == nil {
		return nil
	}
	return &ReplayedError{Type: e.ExceptionType, Message: e.Message, cause: sentinelFor(e.ExceptionType)}
}

// ReplayedError is a recorded network failure raised during replay.
type ReplayedError struct {
	Type    string
	Message *string
	cause   error
}

func (e *ReplayedError) Error() string {
	if e.Message == nil {
		return "replayed network error: " + e.Type
	}
	return fmt.Sprintf("replayed network error: %s: %s", e.Type, *e.Message)
}

// Unwrap returns the well-known sentinel named by Type, if any.
func (e *ReplayedError) Unwrap() error {
	return e.cause
}
