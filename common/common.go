package common

import (
	"errors"
	"strings"
)

var (
	// ErrNilPointer defines an error for a nil pointer
	ErrNilPointer = errors.New("nil pointer")
	// ErrTypeAssertFailure defines an error when a type assertion fails
	ErrTypeAssertFailure = errors.New("type assert failure")
	// ErrNotYetImplemented defines a common error across the code base that's
	// used when a feature is not yet implemented
	ErrNotYetImplemented = errors.New("not yet implemented")
)

// multiError holds all errors appended through AppendError
type multiError struct {
	loadedErrors []error
	offset       *int
}

// AppendError appends an error to a list of errors. Nil errors are ignored and
// the original is returned as is. The returned error is matchable via
// errors.Is against any of its members.
func AppendError(original, incoming error) error {
	if incoming == nil {
		return original
	}
	if original == nil {
		return incoming
	}
	var mErr *multiError
	if errors.As(original, &mErr) {
		mErr.loadedErrors = append(mErr.loadedErrors, incoming)
		return mErr
	}
	return &multiError{loadedErrors: []error{original, incoming}}
}

// Error displays all errors comma separated
func (e *multiError) Error() string {
	allErrors := make([]string, len(e.loadedErrors))
	for x := range e.loadedErrors {
		allErrors[x] = e.loadedErrors[x].Error()
	}
	return strings.Join(allErrors, ", ")
}

// Unwrap returns all loaded errors for errors.Is and errors.As
func (e *multiError) Unwrap() []error {
	return e.loadedErrors
}

// ExcludeError returns a new error excluding any errors that match the
// target; nil is returned when nothing remains
func ExcludeError(err, target error) error {
	var mErr *multiError
	if !errors.As(err, &mErr) {
		if errors.Is(err, target) {
			return nil
		}
		return err
	}
	var remaining error
	for i := range mErr.loadedErrors {
		if errors.Is(mErr.loadedErrors[i], target) {
			continue
		}
		remaining = AppendError(remaining, mErr.loadedErrors[i])
	}
	return remaining
}
