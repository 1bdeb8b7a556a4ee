package booking

import (
	"context"

	"huddle/models"
)

// BookingService is the tool-invocation boundary for group bookings.
type BookingService interface {
	// StartBooking matches candidates, opens a booking and starts its loop. It
	// returns as soon as the loop is scheduled.
	StartBooking(ctx context.Context, req StartBookingRequest) (*StartBookingAck, error)
	GetBooking(id string) (models.BookingView, error)
	ListSessionBookings(sessionID string) []models.BookingView
	// RespondToInvitation records a real invitee's answer.
	RespondToInvitation(invitationID string, accept bool) (models.Invitation, error)
	// SetSpeed changes the simulated-time multiplier of a running booking.
	SetSpeed(bookingID string, multiplier float64) error
	// DrainNotifications empties the outbox of every booking in the session.
	DrainNotifications(sessionID string) []models.Notification
}

// StartBookingRequest is the "start booking" tool input.
type StartBookingRequest struct {
	SessionID              string   `json:"sessionId" binding:"required"`
	ClientID               *string  `json:"clientId,omitempty"`
	Activity               string   `json:"activity" binding:"required"`
	Location               string   `json:"location,omitempty"`
	DesiredTime            string   `json:"desiredTime,omitempty"`
	Headcount              int      `json:"headcount" binding:"required"`
	GenderPreference       string   `json:"genderPreference,omitempty"`
	Level                  string   `json:"level,omitempty"`
	Pace                   string   `json:"pace,omitempty"`
	AvailabilitySlots      []string `json:"availabilitySlots,omitempty"`
	AdditionalRequirements string   `json:"additionalRequirements,omitempty"`
	SpeedMultiplier        float64  `json:"speedMultiplier,omitempty"`
}

// StartBookingAck is returned immediately; the outcome arrives as a notification.
type StartBookingAck struct {
	BookingID      string            `json:"bookingId"`
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	Location       string            `json:"location"`
	CandidateCount int               `json:"candidateCount"`
	MatchStats     models.MatchStats `json:"matchStats"`
}

// LoopStarter schedules a booking's convergence loop.
type LoopStarter interface {
	Start(bookingID string)
}

// SpeedController adjusts a running loop's simulated time.
type SpeedController interface {
	SetSpeed(bookingID string, multiplier float64) error
}
