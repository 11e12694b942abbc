// Package apperr defines the error taxonomy shared by the POS packages.
//
// Validation errors block the offending action. Persistence and sync errors
// are reported but never block cart or checkout operations: the in-memory
// state stays authoritative for the running session.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError rejects a user action (missing topping, insufficient cash,
// empty cart at checkout, ...). State is left unchanged.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed storage write or read. The mutation that
// triggered it has already been applied in memory.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncError reports a failed delivery to the remote endpoint.
type SyncError struct {
	TransactionID string
	StatusCode    int
	Err           error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync %s: http %d: %v", e.TransactionID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.TransactionID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Validation wraps err as a ValidationError for field.
func Validation(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Persistence wraps err as a PersistenceError. Returns nil when err is nil.
func Persistence(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

func IsSync(err error) bool {
	var s *SyncError
	return errors.As(err, &s)
}
