package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound is returned for a page number past the last page.
	ErrPageNotFound = errors.New("page not found")

	// ErrStageUnavailable is returned when no adapter is configured for
	// the requested stage.
	ErrStageUnavailable = errors.New("stage unavailable")
)

// ValidationError reports malformed input. Its message is safe to show
// to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failed or timed out adapter call.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
