// Package booking opens group bookings and exposes their state to the API.
package booking

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"huddle/models"
	"huddle/services/ledger"
	"huddle/services/matching"
	"huddle/services/slots"
)

const (
	maxHeadcount = 20
	// candidatesPerSeat sizes the pool relative to the group.
	candidatesPerSeat = 4
)

// DefaultBookingService implements BookingService on top of the ledger.
type DefaultBookingService struct {
	Ledger       *ledger.Ledger
	Supply       matching.CandidateSupply
	Loops        LoopStarter
	Speed        SpeedController
	DefaultSpeed float64
	Logger       *zap.Logger
}

func (s *DefaultBookingService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func validate(req StartBookingRequest) error {
	switch {
	case strings.TrimSpace(req.SessionID) == "":
		return fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	case strings.TrimSpace(req.Activity) == "":
		return fmt.Errorf("%w: activity is required", ErrInvalidRequest)
	case req.Headcount < 1 || req.Headcount > maxHeadcount:
		return fmt.Errorf("%w: headcount must be between 1 and %d", ErrInvalidRequest, maxHeadcount)
	case req.SpeedMultiplier < 0:
		return fmt.Errorf("%w: speedMultiplier must not be negative", ErrInvalidRequest)
	}
	for _, name := range req.AvailabilitySlots {
		if !slots.Known(name) {
			return fmt.Errorf("%w: unknown availability slot %q", ErrInvalidRequest, name)
		}
	}
	return nil
}

func (s *DefaultBookingService) StartBooking(ctx context.Context, req StartBookingRequest) (*StartBookingAck, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	limit := req.Headcount * candidatesPerSeat
	if limit < matching.DefaultLimit {
		limit = matching.DefaultLimit
	}
	var excludeID string
	if req.ClientID != nil {
		excludeID = *req.ClientID
	}
	candidates, stats, err := s.Supply.Match(ctx, models.MatchCriteria{
		Activity:          req.Activity,
		Location:          req.Location,
		Gender:            req.GenderPreference,
		Level:             req.Level,
		Pace:              req.Pace,
		AvailabilitySlots: req.AvailabilitySlots,
		ExcludeID:         excludeID,
		Headcount:         req.Headcount,
		Limit:             limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to match candidates: %w", err)
	}

	speed := req.SpeedMultiplier
	if speed == 0 {
		speed = s.DefaultSpeed
	}
	id := s.Ledger.NewBookingID()
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = slots.PickLocation(id)
	}

	b := s.Ledger.CreateBooking(models.BookingSpec{
		ID:                     id,
		SessionID:              req.SessionID,
		ClientID:               req.ClientID,
		Activity:               req.Activity,
		Location:               location,
		DesiredTime:            req.DesiredTime,
		Headcount:              req.Headcount,
		Candidates:             candidates,
		SpeedMultiplier:        speed,
		GenderPreference:       req.GenderPreference,
		Level:                  req.Level,
		Pace:                   req.Pace,
		AvailabilitySlots:      req.AvailabilitySlots,
		AdditionalRequirements: req.AdditionalRequirements,
		MatchStats:             stats,
		Variant:                models.VariantStandard,
	})
	s.Loops.Start(b.ID)

	s.logger().Info("Booking started",
		zap.String("bookingId", b.ID),
		zap.String("sessionId", b.SessionID),
		zap.String("activity", b.Activity),
		zap.Int("headcount", b.Headcount),
		zap.Int("candidates", len(candidates)))

	return &StartBookingAck{
		BookingID:      b.ID,
		Status:         string(models.BookingRunning),
		Message:        ackMessage(b, len(candidates)),
		Location:       b.Location,
		CandidateCount: len(candidates),
		MatchStats:     stats,
	}, nil
}

func ackMessage(b *models.Booking, candidates int) string {
	if candidates == 0 {
		return fmt.Sprintf("I couldn't find anyone for %s yet, but I'll keep you posted.", b.Activity)
	}
	return fmt.Sprintf("I'm reaching out to %d people for %s at %s. I'll let you know once %d have said yes.",
		candidates, b.Activity, b.Location, b.Headcount)
}

func (s *DefaultBookingService) GetBooking(id string) (models.BookingView, error) {
	b, err := s.Ledger.GetBooking(id)
	if err != nil {
		return models.BookingView{}, err
	}
	return b.View(), nil
}

func (s *DefaultBookingService) ListSessionBookings(sessionID string) []models.BookingView {
	bookings := s.Ledger.BookingsForSession(sessionID)
	out := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.View())
	}
	return out
}

func (s *DefaultBookingService) RespondToInvitation(invitationID string, accept bool) (models.Invitation, error) {
	inv, err := s.Ledger.RespondToInvitation(invitationID, accept)
	if err != nil {
		return models.Invitation{}, err
	}
	s.logger().Info("Invitation answered",
		zap.String("invitationId", inv.ID),
		zap.String("bookingId", inv.BookingID),
		zap.String("status", string(inv.Status)))
	return inv, nil
}

func (s *DefaultBookingService) SetSpeed(bookingID string, multiplier float64) error {
	if multiplier <= 0 {
		return fmt.Errorf("%w: speed multiplier must be positive", ErrInvalidRequest)
	}
	return s.Speed.SetSpeed(bookingID, multiplier)
}

func (s *DefaultBookingService) DrainNotifications(sessionID string) []models.Notification {
	return s.Ledger.DrainNotifications(sessionID)
}
