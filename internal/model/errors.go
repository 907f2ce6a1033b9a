package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("invalid or missing fields")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("slug already exists")
	ErrNotFound     = errors.New("not found")
	ErrEmailInUse   = errors.New("email already registered")

	// ErrPartiallyProvisioned marks a tenant whose owner principal exists but
	// cannot be matched to the request credentials.
	ErrPartiallyProvisioned = errors.New("tenant partially provisioned: owner identity exists with different credentials")
)

// DependencyError is a failed call to a collaborator (store, identity,
// transport, billing). Op names the call.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError, passing nil through.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}
