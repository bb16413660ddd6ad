package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of booking lifecycle states.
type Status string

const (
	StatusHold      Status = "hold"
	StatusPencil    Status = "pencil"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusHold, StatusPencil, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether the status blocks conflicting bookings on the same
// resource. Holds are tentative and do not block.
func (s Status) Active() bool {
	return s == StatusPencil || s == StatusConfirmed
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Booking is the aggregate root: a half-open [Start, End) claim on one
// resource's time, scoped to one tenant.
type Booking struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ResourceID    uuid.UUID
	GroupID       *uuid.UUID
	Start         time.Time
	End           time.Time
	Status        Status
	HoldExpiresAt *time.Time
	Version       int64
	CreatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Touching endpoints do not overlap, so
// back-to-back bookings are allowed.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Event is one entry of a booking's append-only history. Version is 1-based,
// gapless, and always equal to the booking version the mutation produced.
type Event struct {
	ID          int64
	AggregateID uuid.UUID
	TenantID    uuid.UUID
	Type        string
	Data        json.RawMessage
	Version     int64
	OccurredAt  time.Time
}

// Event types appended by the engine, one per accepted mutation.
const (
	EventTypeCreated   = "booking.created"
	EventTypePencilled = "booking.pencilled"
	EventTypeConfirmed = "booking.confirmed"
	EventTypeCancelled = "booking.cancelled"
	EventTypeCompleted = "booking.completed"
)

func eventTypeFor(target Status) string {
	switch target {
	case StatusPencil:
		return EventTypePencilled
	case StatusConfirmed:
		return EventTypeConfirmed
	case StatusCancelled:
		return EventTypeCancelled
	case StatusCompleted:
		return EventTypeCompleted
	}
	return ""
}
