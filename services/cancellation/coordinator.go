// Package cancellation runs the two-phase cancel flow for bookings.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"huddle/models"
	"huddle/services/convergence"
	"huddle/services/matching"
	"huddle/services/notification"
	"huddle/services/slots"
)

// deadlineBuffer is subtracted from the event start to get the backfill deadline.
const deadlineBuffer = 30 * time.Minute

// backfillLimit caps the candidate pool of a backfill booking.
const backfillLimit = 20

// Options tunes the coordinator. Zero values fall back to the defaults.
type Options struct {
	Reschedule convergence.Preset
	Clock      convergence.Clock
	Now        func() time.Time
}

// Coordinator drives cancellation of running and completed bookings.
type Coordinator struct {
	store      Store
	supply     matching.CandidateSupply
	runner     BackfillRunner
	simulator  convergence.ResponseSimulator
	reschedule convergence.Preset
	clock      convergence.Clock
	now        func() time.Time
	logger     *zap.Logger
}

func NewCoordinator(store Store, supply matching.CandidateSupply, runner BackfillRunner, sim convergence.ResponseSimulator, opts Options, logger *zap.Logger) *Coordinator {
	if opts.Reschedule.SimulatedWait <= 0 {
		opts.Reschedule = convergence.ReschedulePreset()
	}
	if opts.Clock.Tick <= 0 {
		opts.Clock = convergence.DefaultClock()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:      store,
		supply:     supply,
		runner:     runner,
		simulator:  sim,
		reschedule: opts.Reschedule,
		clock:      opts.Clock,
		now:        opts.Now,
		logger:     logger,
	}
}

// RequestCancellation handles both phases of a cancellation. A running booking
// is cancelled on the spot. A completed booking opens a flow (phase 1) or, once
// an intention is supplied, commits it and starts the background work (phase 2).
func (c *Coordinator) RequestCancellation(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	b, err := c.store.GetBooking(req.BookingID)
	if err != nil {
		return CancelResponse{}, err
	}

	if b.Status() == models.BookingRunning && b.Finish(models.BookingCancelled) {
		v := b.View()
		n := notification.Cancelled(v)
		if err := c.store.AppendNotification(b.ID, n); err != nil {
			c.logger.Error("Failed to append cancellation notification", zap.String("bookingId", b.ID), zap.Error(err))
		}
		c.logger.Info("Cancelled running booking",
			zap.String("bookingId", b.ID),
			zap.Int("accepted", len(v.AcceptedParticipants)))
		return CancelResponse{
			BookingID: b.ID,
			Status:    string(models.BookingCancelled),
			Message:   n.Message,
		}, nil
	}

	if b.Status() != models.BookingCompleted {
		return CancelResponse{}, fmt.Errorf("%w: booking %s is %s", ErrInvalidState, b.ID, b.Status())
	}

	participantID := cancellingParticipant(req, b)
	if req.Intention == models.IntentionUnset {
		return c.openFlow(b, req, participantID), nil
	}
	if !req.Intention.Valid() {
		return CancelResponse{}, ErrInvalidIntention
	}
	return c.commit(ctx, b, req, participantID)
}

// cancellingParticipant defaults to the requesting client, then the session.
func cancellingParticipant(req CancelRequest, b *models.Booking) string {
	if req.ParticipantID != "" {
		return req.ParticipantID
	}
	if b.ClientID != nil && *b.ClientID != "" {
		return *b.ClientID
	}
	if req.SessionID != "" {
		return req.SessionID
	}
	return b.SessionID
}

func (c *Coordinator) openFlow(b *models.Booking, req CancelRequest, participantID string) CancelResponse {
	f, created := c.store.ActiveCancelFlow(b.ID, sessionOf(req, b), participantID)
	if created {
		c.logger.Info("Opened cancel flow", zap.String("bookingId", b.ID), zap.String("flowId", f.ID))
	}
	if f.Status() != models.FlowAwaitingIntention {
		return flowResponse(f, "This cancellation is already in progress.")
	}
	resp := flowResponse(f, fmt.Sprintf(
		"Would you like to reschedule %s with the group, or leave the group entirely so I can find you a new one?",
		b.Activity))
	resp.Options = []models.CancelIntention{models.IntentionReschedule, models.IntentionLeave}
	return resp
}

func sessionOf(req CancelRequest, b *models.Booking) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	return b.SessionID
}

func flowResponse(f *models.CancelFlow, msg string) CancelResponse {
	v := f.View()
	return CancelResponse{
		BookingID:             v.BookingID,
		Status:                string(v.Status),
		Message:               msg,
		CancelFlowID:          v.ID,
		RemainingParticipants: v.RemainingParticipants,
		BackfillBookingID:     v.BackfillBookingID,
		BackfillDeadline:      v.BackfillDeadline,
	}
}

// findFlow looks the flow up by id, falling back to the booking's active flow
// and creating one when the caller lost track of it.
func (c *Coordinator) findFlow(b *models.Booking, req CancelRequest, participantID string) *models.CancelFlow {
	if req.CancelFlowID != "" {
		if f, err := c.store.GetCancelFlow(req.CancelFlowID); err == nil && f.BookingID == b.ID {
			return f
		}
	}
	f, _ := c.store.ActiveCancelFlow(b.ID, sessionOf(req, b), participantID)
	return f
}

func (c *Coordinator) commit(ctx context.Context, b *models.Booking, req CancelRequest, participantID string) (CancelResponse, error) {
	f := c.findFlow(b, req, participantID)
	leaverID := f.CancellingParticipantID
	if req.ParticipantID != "" {
		leaverID = req.ParticipantID
	}

	v := b.View()
	remaining := make([]models.Participant, 0, len(v.AcceptedParticipants))
	leaver := models.Participant{ID: leaverID, Name: "A member"}
	for _, p := range v.AcceptedParticipants {
		if p.ID == leaverID {
			leaver = p
			continue
		}
		remaining = append(remaining, p)
	}

	var deadline int64
	if v.SelectedSlot != nil {
		deadline = v.SelectedSlot.Start.Add(-deadlineBuffer).Unix()
	}
	excluded := append([]string(nil), v.AvailabilitySlots...)
	if v.SelectedSlot != nil && !contains(excluded, v.SelectedSlot.Name) {
		excluded = append(excluded, v.SelectedSlot.Name)
	}

	if !f.Commit(req.Intention, remaining, deadline, excluded) {
		return flowResponse(f, "This cancellation is already in progress."), nil
	}
	log := c.logger.With(zap.String("bookingId", b.ID), zap.String("flowId", f.ID))
	log.Info("Cancel intention committed",
		zap.String("intention", string(req.Intention)),
		zap.Int("remaining", len(remaining)),
		zap.Int64("backfillDeadline", deadline))

	if req.Intention == models.IntentionReschedule {
		c.runner.Go(func(ctx context.Context) { c.pollReschedule(ctx, log, f) })
		return flowResponse(f, fmt.Sprintf("Checking whether %s can move %s to a new time.",
			namesOr(remaining, "the group"), b.Activity)), nil
	}

	backfill := c.createBackfill(ctx, log, b, f, leaver, remaining)
	c.runner.Go(func(ctx context.Context) { c.runLeave(ctx, log, b, f, backfill, leaver, remaining) })
	return flowResponse(f, fmt.Sprintf("You've left the %s group. I'm looking for a new group for you at a different time.",
		b.Activity)), nil
}

func namesOr(ps []models.Participant, fallback string) string {
	if len(ps) == 0 {
		return fallback
	}
	return notification.Names(ps)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// createBackfill opens the headcount-1 booking that finds the leaver a new group.
// A supply failure still creates the booking, with an empty pool, so the loop
// fails it with the usual notification.
func (c *Coordinator) createBackfill(ctx context.Context, log *zap.Logger, b *models.Booking, f *models.CancelFlow, leaver models.Participant, remaining []models.Participant) *models.Booking {
	excluded := f.ExcludedSlots()
	candidates, stats, err := c.supply.Match(ctx, models.MatchCriteria{
		Activity:      b.Activity,
		Gender:        b.GenderPreference,
		Level:         b.Level,
		Pace:          b.Pace,
		ExcludeID:     leaver.ID,
		ExcludedSlots: excluded,
		Headcount:     1,
		Limit:         backfillLimit + len(remaining),
	})
	if err != nil {
		log.Warn("Backfill candidate query failed", zap.Error(err))
	}
	pool := make([]models.Participant, 0, len(candidates))
	for _, p := range candidates {
		if !containsID(remaining, p.ID) {
			pool = append(pool, p)
		}
	}

	id := c.store.NewBookingID()
	backfill := c.store.CreateBooking(models.BookingSpec{
		ID:                     id,
		SessionID:              b.SessionID,
		ClientID:               b.ClientID,
		Activity:               b.Activity,
		Location:               slots.PickLocation(id),
		Headcount:              1,
		Candidates:             pool,
		SpeedMultiplier:        b.SpeedMultiplier(),
		GenderPreference:       b.GenderPreference,
		Level:                  b.Level,
		Pace:                   b.Pace,
		AdditionalRequirements: b.AdditionalRequirements,
		MatchStats:             stats,
		Variant:                models.VariantBackfill,
		ParentBookingID:        b.ID,
		ExcludedSlots:          excluded,
	})
	f.SetBackfillBooking(backfill.ID)
	log.Info("Backfill booking created", zap.String("backfillBookingId", backfill.ID), zap.Int("candidates", len(pool)))
	return backfill
}

func containsID(ps []models.Participant, id string) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}

// runLeave notifies the remaining group and runs the backfill loop side by
// side, then settles the flow from the backfill booking's outcome.
func (c *Coordinator) runLeave(ctx context.Context, log *zap.Logger, b *models.Booking, f *models.CancelFlow, backfill *models.Booking, leaver models.Participant, remaining []models.Participant) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Leave flow panicked", zap.Any("panic", r), zap.Stack("stack"))
			f.Finish(models.FlowLeaveBackfillFailed)
		}
	}()

	// The notice and the backfill loop are independent: a failed notice must
	// not stop the loop.
	var g errgroup.Group
	g.Go(func() error {
		if err := c.store.AppendNotification(b.ID, notification.MemberLeft(b.View(), leaver.Name, remaining)); err != nil {
			log.Error("Failed to record member-left notice", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return c.runner.Run(ctx, backfill.ID)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Leave flow interrupted", zap.Error(err))
			return
		}
		log.Error("Backfill loop failed", zap.Error(err))
	}

	if _, err := c.store.GetBooking(b.ID); err != nil {
		log.Warn("Original booking disappeared during leave flow", zap.Error(err))
		return
	}
	switch backfill.Status() {
	case models.BookingCompleted:
		f.Finish(models.FlowLeaveCompleted)
	case models.BookingRunning:
		return
	default:
		f.Finish(models.FlowLeaveBackfillFailed)
	}
	log.Info("Leave flow finished", zap.String("status", string(f.Status())))
}

// pollReschedule waits one reschedule period, then asks every remaining
// participant. The group stays together only if all of them agree.
func (c *Coordinator) pollReschedule(ctx context.Context, log *zap.Logger, f *models.CancelFlow) {
	var b *models.Booking
	defer func() {
		if r := recover(); r != nil {
			log.Error("Reschedule polling panicked", zap.Any("panic", r), zap.Stack("stack"))
			if f.Finish(models.FlowRescheduleFailed) && b != nil {
				_ = c.store.AppendNotification(b.ID, notification.Error(b.View()))
			}
		}
	}()

	b, err := c.store.GetBooking(f.BookingID)
	if err != nil {
		log.Warn("Booking disappeared before reschedule polling", zap.Error(err))
		return
	}
	remaining := f.Remaining()
	allReal := true
	for _, p := range remaining {
		if p.IsMock {
			allReal = false
			break
		}
	}

	err = c.clock.Wait(ctx, c.reschedule.SimulatedWait, b.SpeedMultiplier, func() bool {
		return allReal && c.allConfirmed(f, remaining)
	})
	if err != nil {
		log.Warn("Reschedule polling interrupted", zap.Error(err))
		return
	}
	if _, err := c.store.GetBooking(f.BookingID); err != nil {
		log.Warn("Booking disappeared during reschedule polling", zap.Error(err))
		return
	}

	for _, p := range remaining {
		if p.IsMock && c.simulator.Draw(p, c.reschedule) == models.InvitationAccepted {
			f.ConfirmReschedule(p.ID)
		}
	}
	ok := c.allConfirmed(f, remaining)
	to := models.FlowRescheduleFailed
	if ok {
		to = models.FlowRescheduleSucceeded
	}
	if !f.Finish(to) {
		return
	}
	if err := c.store.AppendNotification(b.ID, notification.RescheduleResult(b.View(), remaining, ok)); err != nil {
		log.Error("Failed to append reschedule notification", zap.Error(err))
	}
	log.Info("Reschedule polling finished", zap.String("status", string(to)))
}

func (c *Coordinator) allConfirmed(f *models.CancelFlow, remaining []models.Participant) bool {
	for _, p := range remaining {
		if !f.RescheduleConfirmed(p.ID) {
			return false
		}
	}
	return true
}

// ConfirmReschedule records a real participant agreeing to the new time.
func (c *Coordinator) ConfirmReschedule(flowID, participantID string) (models.CancelFlowView, error) {
	f, err := c.store.GetCancelFlow(flowID)
	if err != nil {
		return models.CancelFlowView{}, err
	}
	if f.Status() != models.FlowReschedulePolling {
		return models.CancelFlowView{}, ErrNotPolling
	}
	if !f.ConfirmReschedule(participantID) {
		return models.CancelFlowView{}, ErrNotInGroup
	}
	return f.View(), nil
}

// GetCancelFlow returns a snapshot of a flow.
func (c *Coordinator) GetCancelFlow(flowID string) (models.CancelFlowView, error) {
	f, err := c.store.GetCancelFlow(flowID)
	if err != nil {
		return models.CancelFlowView{}, err
	}
	return f.View(), nil
}
