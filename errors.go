package main

import "errors"

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a request without any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(reason string) error {
	return &ValidationError{Reason: reason}
}

func isValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
