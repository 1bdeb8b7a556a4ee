package cancellation

import "errors"

var (
	// ErrInvalidState is returned for bookings that are neither running nor completed.
	ErrInvalidState = errors.New("booking cannot be cancelled in its current state")
	// ErrInvalidIntention is returned for anything but "reschedule" or "leave".
	ErrInvalidIntention = errors.New("intention must be \"reschedule\" or \"leave\"")
	// ErrNotPolling is returned when confirming a flow that is not collecting confirmations.
	ErrNotPolling = errors.New("cancel flow is not waiting for reschedule confirmations")
	// ErrNotInGroup is returned when the confirming participant is not in the remaining group.
	ErrNotInGroup = errors.New("participant is not part of the remaining group")
)
