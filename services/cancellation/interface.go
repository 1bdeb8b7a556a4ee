package cancellation

import (
	"context"

	"huddle/models"
)

// Store is the slice of the ledger the coordinator needs.
type Store interface {
	NewBookingID() string
	CreateBooking(spec models.BookingSpec) *models.Booking
	GetBooking(id string) (*models.Booking, error)
	GetCancelFlow(id string) (*models.CancelFlow, error)
	ActiveCancelFlow(bookingID, sessionID, participantID string) (*models.CancelFlow, bool)
	AppendNotification(bookingID string, n models.Notification) error
}

// BackfillRunner runs convergence loops for backfill bookings and tracks
// background work for shutdown.
type BackfillRunner interface {
	Run(ctx context.Context, bookingID string) error
	Go(fn func(ctx context.Context))
}

// CancelRequest is the "cancel booking" tool input.
type CancelRequest struct {
	BookingID     string                 `json:"bookingId"`
	SessionID     string                 `json:"sessionId"`
	ParticipantID string                 `json:"participantId,omitempty"`
	Intention     models.CancelIntention `json:"intention,omitempty"`
	CancelFlowID  string                 `json:"cancelFlowId,omitempty"`
}

// CancelResponse is returned by both phases and by the running-booking fast path.
type CancelResponse struct {
	BookingID             string                   `json:"bookingId"`
	Status                string                   `json:"status"`
	Message               string                   `json:"message"`
	CancelFlowID          string                   `json:"cancelFlowId,omitempty"`
	Options               []models.CancelIntention `json:"options,omitempty"`
	RemainingParticipants []models.Participant     `json:"remainingParticipants,omitempty"`
	BackfillBookingID     string                   `json:"backfillBookingId,omitempty"`
	BackfillDeadline      int64                    `json:"backfillDeadline,omitempty"`
}
