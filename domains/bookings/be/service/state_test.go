package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusHold, StatusPencil, true},
		{StatusHold, StatusConfirmed, true},
		{StatusHold, StatusCancelled, true},
		{StatusHold, StatusCompleted, false},
		{StatusPencil, StatusConfirmed, true},
		{StatusPencil, StatusCancelled, true},
		{StatusPencil, StatusHold, false},
		{StatusPencil, StatusCompleted, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPencil, false},
		{StatusConfirmed, StatusHold, false},
		{StatusCancelled, StatusPencil, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			require.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := ValidateTransition(StatusCompleted, StatusCancelled)
	require.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, ValidateTransition(StatusHold, StatusPencil))
}

func TestStatusPredicates(t *testing.T) {
	require.True(t, StatusPencil.Active())
	require.True(t, StatusConfirmed.Active())
	require.False(t, StatusHold.Active())
	require.False(t, StatusCancelled.Active())

	require.True(t, StatusCancelled.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.False(t, StatusConfirmed.Terminal())

	require.False(t, Status("deleted").Valid())
}

func TestOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	// [0, 2) vs [1, 3) share the hour between 1 and 2.
	require.True(t, Overlaps(at(0), at(2), at(1), at(3)))
	// Containment.
	require.True(t, Overlaps(at(0), at(4), at(1), at(2)))
	// Identical intervals.
	require.True(t, Overlaps(at(0), at(2), at(0), at(2)))
	// Back to back bookings touch but do not overlap.
	require.False(t, Overlaps(at(0), at(2), at(2), at(4)))
	require.False(t, Overlaps(at(2), at(4), at(0), at(2)))
	// Disjoint.
	require.False(t, Overlaps(at(0), at(1), at(3), at(4)))
}
