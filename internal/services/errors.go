package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery        = errors.New("invalid query")
	ErrNotFound            = errors.New("not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrBackgroundRecording = errors.New("background recording failed")
)

// InvalidQueryError rejects the whole request: a bad core field such as an
// unknown language or sort, or negative pagination.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

func invalidQuery(field, format string, args ...interface{}) error {
	return &InvalidQueryError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a click references an unknown or expired event.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreUnavailableError wraps any catalog, suggestion or event store failure.
type StoreUnavailableError struct {
	Store string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Store, e.Err)
}

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func storeUnavailable(store string, err error) error {
	var sue *StoreUnavailableError
	if errors.As(err, &sue) {
		return err
	}
	return &StoreUnavailableError{Store: store, Err: err}
}

// BackgroundRecordingError is only ever logged. It never reaches a caller.
type BackgroundRecordingError struct {
	Task     string
	Attempts int
	Err      error
}

func (e *BackgroundRecordingError) Error() string {
	return fmt.Sprintf("background task %s failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *BackgroundRecordingError) Is(target error) bool { return target == ErrBackgroundRecording }

func (e *BackgroundRecordingError) Unwrap() error { return e.Err }
