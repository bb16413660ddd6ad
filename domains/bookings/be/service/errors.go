package service

import (
	"errors"
	"fmt"
)

// Errors returned by the booking engine.
var (
	// ErrInvalidRange rejects candidates where start >= end.
	ErrInvalidRange = errors.New("invalid interval: start must be before end")
	// ErrTenantMismatch rejects access to a record owned by another tenant.
	ErrTenantMismatch = errors.New("record belongs to a different tenant")
	// ErrResourceNotFound rejects bookings against unknown or inactive resources.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrNotFound means the booking does not exist.
	ErrNotFound = errors.New("booking not found")
	// ErrIllegalTransition rejects status changes outside the transition table.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrVersionConflict means the caller's expected version is stale; re-read and retry.
	ErrVersionConflict = errors.New("booking version conflict")
	// ErrBusy means the per-resource lock could not be acquired within the bound;
	// callers may retry with backoff.
	ErrBusy = errors.New("resource busy, try again")
)

// ConflictError reports an interval overlap with one or more active bookings.
// The conflicting bookings are carried for client-side display.
type ConflictError struct {
	Conflicts []Booking
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return fmt.Sprintf("interval conflicts with booking %s", e.Conflicts[0].ID)
	}
	return fmt.Sprintf("interval conflicts with %d bookings", len(e.Conflicts))
}

func illegalTransition(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func illegalTarget(to Status) error {
	return fmt.Errorf("%w: invalid target %q", ErrIllegalTransition, to)
}
