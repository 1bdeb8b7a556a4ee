// Package convergence runs the batch invitation loop that narrows a candidate
// pool down to a confirmed group.
package convergence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"huddle/models"
	"huddle/services/notification"
	"huddle/services/slots"
)

// ErrNotRunning is returned by operator actions on a booking that already finished.
var ErrNotRunning = errors.New("booking is not running")

// reminderLead is how long before the event start a reminder fires.
const reminderLead = 30 * time.Minute

// Store is the slice of the ledger the loop needs.
type Store interface {
	GetBooking(id string) (*models.Booking, error)
	IssueInvitations(b *models.Booking, candidates []models.Participant, batchIndex int) []models.Invitation
	AppendNotification(bookingID string, n models.Notification) error
}

// ReminderScheduler schedules an upcoming-event reminder for a completed booking.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, bookingID string, at time.Time) error
}

// Engine executes convergence loops. One Engine serves every booking; each
// call to Run owns exactly one booking.
type Engine struct {
	store     Store
	sink      notification.Sink
	simulator ResponseSimulator
	reminders ReminderScheduler
	presets   map[models.BookingVariant]Preset
	clock     Clock
	now       func() time.Time
	logger    *zap.Logger
}

// Options configures an Engine. Zero values fall back to the defaults.
type Options struct {
	Standard  Preset
	Backfill  Preset
	Clock     Clock
	Reminders ReminderScheduler
	Now       func() time.Time
}

func NewEngine(store Store, sink notification.Sink, sim ResponseSimulator, opts Options, logger *zap.Logger) *Engine {
	if opts.Standard.BatchSize <= 0 {
		opts.Standard = StandardPreset()
	}
	if opts.Backfill.BatchSize <= 0 {
		opts.Backfill = BackfillPreset()
	}
	if opts.Clock.Tick <= 0 {
		opts.Clock = DefaultClock()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		sink:      sink,
		simulator: sim,
		reminders: opts.Reminders,
		presets: map[models.BookingVariant]Preset{
			models.VariantStandard: opts.Standard,
			models.VariantBackfill: opts.Backfill,
		},
		clock:  opts.Clock,
		now:    opts.Now,
		logger: logger,
	}
}

// Preset returns the tuning constants used for variant.
func (e *Engine) Preset(variant models.BookingVariant) Preset {
	if p, ok := e.presets[variant]; ok {
		return p
	}
	return e.presets[models.VariantStandard]
}

// Run drives the booking until it completes, fails, is cancelled, or ctx ends.
// A panic inside the loop fails the booking instead of leaving it running
// with nobody driving it.
func (e *Engine) Run(ctx context.Context, bookingID string) (err error) {
	b, err := e.store.GetBooking(bookingID)
	if err != nil {
		return err
	}
	log := e.logger.With(zap.String("bookingId", b.ID), zap.String("variant", string(b.Variant)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("convergence loop panicked", zap.Any("panic", r), zap.Stack("stack"))
			if b.Finish(models.BookingFailed) {
				e.notify(log, b, notification.Error(b.View()))
			}
			err = fmt.Errorf("convergence loop for booking %s panicked: %v", b.ID, r)
		}
	}()

	preset := e.Preset(b.Variant)
	log.Info("convergence loop started",
		zap.Int("headcount", b.Headcount),
		zap.Int("candidates", len(b.Candidates)),
		zap.Int("batchSize", preset.BatchSize))

	for b.Status() == models.BookingRunning {
		batchIndex := b.CurrentBatch()
		batch := b.NextBatch(preset.BatchSize)
		if len(batch) == 0 {
			e.fail(log, b)
			return nil
		}

		issued := e.store.IssueInvitations(b, batch, batchIndex)
		if issued == nil {
			log.Info("booking left running before dispatch", zap.String("status", string(b.Status())))
			return nil
		}
		log.Debug("batch dispatched", zap.Int("batch", batchIndex), zap.Int("invitations", len(issued)))

		err := e.clock.Wait(ctx, preset.SimulatedWait, b.SpeedMultiplier, func() bool {
			if b.Status() != models.BookingRunning {
				return true
			}
			return b.FoldAccepted() >= b.Headcount
		})
		if err != nil {
			// Nothing resumes an interrupted loop, so the booking must not stay running.
			log.Warn("convergence loop interrupted", zap.Error(err))
			if b.Finish(models.BookingFailed) {
				e.notify(log, b, notification.Error(b.View()))
			}
			return err
		}
		if b.Status() != models.BookingRunning {
			log.Info("booking left running during wait", zap.String("status", string(b.Status())))
			return nil
		}

		e.resolveBatch(b, batchIndex, preset)

		accepted := b.FoldAccepted()
		log.Debug("batch resolved", zap.Int("batch", batchIndex), zap.Int("accepted", accepted))
		if accepted >= b.Headcount {
			e.complete(ctx, log, b)
			return nil
		}
		b.AdvanceBatch()
	}
	return nil
}

// resolveBatch settles every invitation of the batch that is still pending.
// Mock candidates answer through the simulator; real candidates who stayed
// silent expire. A real response racing this pass wins and the resolve error
// is ignored.
func (e *Engine) resolveBatch(b *models.Booking, batchIndex int, preset Preset) {
	now := e.now()
	for _, inv := range b.PendingInBatch(batchIndex) {
		status := models.InvitationExpired
		if inv.Candidate.IsMock {
			status = e.simulator.Draw(inv.Candidate, preset)
		}
		_ = b.ResolveInvitation(inv.ID, status, now)
	}
}

func (e *Engine) complete(ctx context.Context, log *zap.Logger, b *models.Booking) {
	b.SetSelectedSlot(slots.PickNearest(b.NarrowSlots(), e.now()))
	if !b.Finish(models.BookingCompleted) {
		return
	}
	v := b.View()
	log.Info("booking completed", zap.Int("accepted", len(v.AcceptedParticipants)), zap.String("slot", v.SelectedSlot.Label))
	if b.Variant == models.VariantBackfill {
		e.notify(log, b, notification.BackfillResult(v, true))
	} else {
		e.notify(log, b, notification.Completion(v))
	}

	if e.reminders == nil || v.SelectedSlot == nil {
		return
	}
	at := v.SelectedSlot.Start.Add(-reminderLead)
	if !at.After(e.now()) {
		return
	}
	if err := e.reminders.ScheduleReminder(ctx, b.ID, at); err != nil {
		log.Warn("failed to schedule reminder", zap.Error(err))
	}
}

func (e *Engine) fail(log *zap.Logger, b *models.Booking) {
	if !b.Finish(models.BookingFailed) {
		return
	}
	v := b.View()
	log.Info("candidate pool exhausted",
		zap.Int("invited", len(v.Invitations)),
		zap.Int("accepted", len(v.AcceptedParticipants)),
		zap.Int("needed", v.Headcount))
	if b.Variant == models.VariantBackfill {
		e.notify(log, b, notification.BackfillResult(v, false))
	} else {
		e.notify(log, b, notification.Failure(v))
	}
}

func (e *Engine) notify(log *zap.Logger, b *models.Booking, n models.Notification) {
	if err := e.sink.AppendNotification(b.ID, n); err != nil {
		log.Error("failed to append notification", zap.String("kind", string(n.Kind)), zap.Error(err))
	}
}

// SetSpeed changes the simulated-time multiplier of a running booking. The
// loop picks it up at its next tick.
func (e *Engine) SetSpeed(bookingID string, multiplier float64) error {
	b, err := e.store.GetBooking(bookingID)
	if err != nil {
		return err
	}
	if b.Status() != models.BookingRunning {
		return ErrNotRunning
	}
	b.SetSpeedMultiplier(multiplier)
	return nil
}
