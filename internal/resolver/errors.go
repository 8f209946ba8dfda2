package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable means a backend could not be reached or refused the request.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrTimeout means a backend did not answer within the attempt timeout.
	ErrTimeout = errors.New("backend timeout")
	// ErrNotFound means a backend reported that the item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse means a backend answered with data that could not be used.
	ErrMalformedResponse = errors.New("malformed backend response")
	// ErrInvalidInput means the request was rejected before any backend was tried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAllBackendsUnavailable is matched by *AllBackendsError.
	ErrAllBackendsUnavailable = errors.New("all backends unavailable")
	// ErrNoBackends means the engine was built without any backend.
	ErrNoBackends = errors.New("no backends configured")
)

// AttemptError captures one backend attempt failure.
type AttemptError struct {
	Backend string
	Err     error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e AttemptError) Unwrap() error {
	return e.Err
}

// AllBackendsError is returned when every backend attempt failed.
type AllBackendsError struct {
	Operation string
	Attempts  []AttemptError
}

func (e *AllBackendsError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: all backends unavailable", e.Operation)
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("%s: all backends unavailable after %d attempt(s): %s",
		e.Operation, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *AllBackendsError) Is(target error) bool {
	return target == ErrAllBackendsUnavailable
}

// Timeout reports whether the last attempt failed by timing out.
func (e *AllBackendsError) Timeout() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	return errors.Is(e.Attempts[len(e.Attempts)-1].Err, ErrTimeout)
}

// Backends returns the names of the attempted backends in order.
func (e *AllBackendsError) Backends() []string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Backend)
	}
	return names
}

// IsTimeout reports whether err is a terminal failure whose last attempt timed out.
func IsTimeout(err error) bool {
	var all *AllBackendsError
	if errors.As(err, &all) {
		return all.Timeout()
	}
	return errors.Is(err, ErrTimeout)
}

// classify maps an arbitrary error to one of the backend error kinds.
// The attempt context decides between timeout and plain unavailability.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range []error{ErrTimeout, ErrNotFound, ErrMalformedResponse, ErrUnavailable} {
		if errors.Is(err, kind) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// outcome is the metrics label for an attempt result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}
