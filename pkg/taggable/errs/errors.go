package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports input that violates a model constraint: blank or
// duplicate names, bad hierarchy, missing tagging fields, duplicate tuples.
// It is never worth retrying unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced tag or tagging that does not exist.
type NotFoundError struct {
	Resource string
	ID       uint
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ConflictError marks a unique-constraint violation that slipped past an
// in-memory pre-check because of a concurrent writer. Callers should retry
// the surrounding operation (e.g. re-run a bulk resolve).
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: conflicting concurrent write: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// TransactionError reports a failed or aborted store transaction. The
// wrapped operation had no partial effect and may be retried.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// HookError collects post-write hook failures. The primary write has already
// committed by the time a HookError is returned; nothing is rolled back.
type HookError struct {
	Errs []error
}

func (e *HookError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "post-write hooks failed: " + strings.Join(msgs, "; ")
}

func (e *HookError) Unwrap() []error { return e.Errs }

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsTransaction(err error) bool {
	var e *TransactionError
	return errors.As(err, &e)
}

func IsHook(err error) bool {
	var e *HookError
	return errors.As(err, &e)
}
