package cancellation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	candidateRepo "huddle/database/repository/candidate"
	"huddle/models"
	"huddle/services/convergence"
	"huddle/services/ledger"
	"huddle/services/matching"
)

type fixture struct {
	ledger *ledger.Ledger
	engine *convergence.Engine
	runner *convergence.Runner
	coord  *Coordinator
}

func fastClock() convergence.Clock {
	return convergence.Clock{Tick: time.Millisecond, TickSeconds: 1}
}

func always(status models.InvitationStatus) convergence.ResponseSimulator {
	return convergence.SimulatorFunc(func(models.Participant, convergence.Preset) models.InvitationStatus { return status })
}

func newFixture(t *testing.T, rescheduleAnswer models.InvitationStatus, supplyPool []models.Participant) *fixture {
	t.Helper()
	l := ledger.New()
	engine := convergence.NewEngine(l, l, always(models.InvitationAccepted), convergence.Options{Clock: fastClock()}, nil)
	runner := convergence.NewRunner(engine, 4, nil)
	supply := &matching.DefaultMatchingService{Repo: candidateRepo.NewSeedCandidateRepo(supplyPool)}
	coord := NewCoordinator(l, supply, runner, always(rescheduleAnswer), Options{Clock: fastClock()}, nil)
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })
	return &fixture{ledger: l, engine: engine, runner: runner, coord: coord}
}

func group(n int, mock bool) []models.Participant {
	out := make([]models.Participant, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Participant{
			ID:                fmt.Sprintf("member-%d", i),
			Name:              fmt.Sprintf("Member %d", i),
			IsMock:            mock,
			AvailabilitySlots: []string{"weekend_morning"},
		})
	}
	return out
}

func (f *fixture) completedBooking(t *testing.T, members []models.Participant) *models.Booking {
	t.Helper()
	b := f.ledger.CreateBooking(models.BookingSpec{
		SessionID:       "session-1",
		Activity:        "running",
		Location:        "Riverside Park Pavilion",
		Headcount:       len(members),
		Candidates:      members,
		SpeedMultiplier: 1000,
	})
	issued := f.ledger.IssueInvitations(b, members, 0)
	for _, inv := range issued {
		require.NoError(t, b.ResolveInvitation(inv.ID, models.InvitationAccepted, time.Now()))
	}
	b.FoldAccepted()
	b.NarrowSlots()
	b.SetSelectedSlot(models.ResolvedSlot{Name: "weekend_morning", Start: time.Now().Add(48 * time.Hour)})
	require.True(t, b.Finish(models.BookingCompleted))
	return b
}

func TestCancelRunningBookingFastPath(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	pool := group(5, true)
	b := f.ledger.CreateBooking(models.BookingSpec{SessionID: "session-1", Activity: "tennis", Headcount: 3, Candidates: pool})
	issued := f.ledger.IssueInvitations(b, pool[:2], 0)
	for _, inv := range issued {
		require.NoError(t, b.ResolveInvitation(inv.ID, models.InvitationAccepted, time.Now()))
	}
	require.Equal(t, 2, b.FoldAccepted())

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID, SessionID: "session-1"})
	require.NoError(t, err)
	assert.Equal(t, string(models.BookingCancelled), resp.Status)
	assert.Empty(t, resp.CancelFlowID)
	assert.Equal(t, models.BookingCancelled, b.Status())

	notes := f.ledger.DrainNotifications("session-1")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationBookingCancelled, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "Member 0")
	assert.Contains(t, notes[0].Message, "Member 1")

	_, err = f.ledger.GetCancelFlowByBooking(b.ID)
	assert.ErrorIs(t, err, ledger.ErrCancelFlowNotFound)
}

func TestCancelCompletedBookingOffersTwoChoicesIdempotently(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.completedBooking(t, group(3, true))

	first, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID, SessionID: "session-1"})
	require.NoError(t, err)
	assert.Equal(t, string(models.FlowAwaitingIntention), first.Status)
	assert.Equal(t, []models.CancelIntention{models.IntentionReschedule, models.IntentionLeave}, first.Options)
	require.NotEmpty(t, first.CancelFlowID)

	second, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID, SessionID: "session-1"})
	require.NoError(t, err)
	assert.Equal(t, first.CancelFlowID, second.CancelFlowID)
	assert.Equal(t, models.BookingCompleted, b.Status())
}

func TestCancelRejectsFinishedBookings(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.ledger.CreateBooking(models.BookingSpec{SessionID: "session-1", Activity: "yoga", Headcount: 1})
	require.True(t, b.Finish(models.BookingFailed))

	_, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.BookingFailed, b.Status())

	_, err = f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrBookingNotFound)
}

func TestInvalidIntentionLeavesFlowAwaiting(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.completedBooking(t, group(3, true))
	opened, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID})
	require.NoError(t, err)

	_, err = f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:    b.ID,
		CancelFlowID: opened.CancelFlowID,
		Intention:    "postpone",
	})
	assert.ErrorIs(t, err, ErrInvalidIntention)

	flow, err := f.coord.GetCancelFlow(opened.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowAwaitingIntention, flow.Status)
}

func TestLeaveCreatesSeparateBackfillBooking(t *testing.T) {
	replacements := []models.Participant{
		{ID: "new-1", Name: "Nora", IsMock: true, Activities: []string{"running"}, AvailabilitySlots: []string{"weekday_evening"}},
		{ID: "new-2", Name: "Omar", IsMock: true, Activities: []string{"running"}, AvailabilitySlots: []string{"weekend_morning"}},
	}
	members := group(4, true)
	f := newFixture(t, models.InvitationAccepted, append(replacements, members...))
	b := f.completedBooking(t, members)

	opened, err := f.coord.RequestCancellation(context.Background(), CancelRequest{BookingID: b.ID, ParticipantID: "member-0"})
	require.NoError(t, err)

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-0",
		CancelFlowID:  opened.CancelFlowID,
		Intention:     models.IntentionLeave,
	})
	require.NoError(t, err)
	assert.Equal(t, opened.CancelFlowID, resp.CancelFlowID)
	assert.Equal(t, string(models.FlowLeaveBackfillPrompt), resp.Status)
	assert.Len(t, resp.RemainingParticipants, 3)
	require.NotEmpty(t, resp.BackfillBookingID)
	assert.NotEqual(t, b.ID, resp.BackfillBookingID)
	assert.Positive(t, resp.BackfillDeadline)

	f.runner.Wait()

	assert.Len(t, b.Accepted(), 4, "original group is untouched")
	assert.Equal(t, models.BookingCompleted, b.Status())

	backfill, err := f.ledger.GetBooking(resp.BackfillBookingID)
	require.NoError(t, err)
	v := backfill.View()
	assert.Equal(t, models.VariantBackfill, v.Variant)
	assert.Equal(t, b.ID, v.ParentBookingID)
	assert.Equal(t, 1, v.Headcount)
	assert.Contains(t, v.ExcludedSlots, "weekend_morning")
	assert.Equal(t, 1, v.CandidateCount, "only the replacement outside the excluded slot remains")
	assert.Equal(t, models.BookingCompleted, v.Status)

	flow, err := f.coord.GetCancelFlow(resp.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowLeaveCompleted, flow.Status)

	kinds := map[models.NotificationKind]int{}
	for _, n := range f.ledger.DrainNotifications("session-1") {
		kinds[n.Kind]++
	}
	assert.Equal(t, 1, kinds[models.NotificationMemberLeft])
	assert.Equal(t, 1, kinds[models.NotificationBackfillCompleted])
}

// noticeFailingStore rejects every notification for one booking.
type noticeFailingStore struct {
	*ledger.Ledger
	bookingID string
}

func (s noticeFailingStore) AppendNotification(bookingID string, n models.Notification) error {
	if bookingID == s.bookingID {
		return errors.New("outbox unavailable")
	}
	return s.Ledger.AppendNotification(bookingID, n)
}

func TestLeaveBackfillRunsWhenNoticeFails(t *testing.T) {
	replacement := models.Participant{ID: "new-1", Name: "Nora", IsMock: true, Activities: []string{"running"}, AvailabilitySlots: []string{"weekday_evening"}}
	members := group(3, true)
	f := newFixture(t, models.InvitationAccepted, append([]models.Participant{replacement}, members...))
	b := f.completedBooking(t, members)

	supply := &matching.DefaultMatchingService{Repo: candidateRepo.NewSeedCandidateRepo(append([]models.Participant{replacement}, members...))}
	coord := NewCoordinator(noticeFailingStore{Ledger: f.ledger, bookingID: b.ID}, supply, f.runner, always(models.InvitationAccepted), Options{Clock: fastClock()}, nil)

	resp, err := coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-0",
		Intention:     models.IntentionLeave,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.BackfillBookingID)
	f.runner.Wait()

	backfill, err := f.ledger.GetBooking(resp.BackfillBookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, backfill.Status())

	flow, err := coord.GetCancelFlow(resp.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowLeaveCompleted, flow.Status)
}

func TestLeaveWithNoReplacementsFailsBackfill(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.completedBooking(t, group(2, true))

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-1",
		Intention:     models.IntentionLeave,
	})
	require.NoError(t, err)
	f.runner.Wait()

	flow, err := f.coord.GetCancelFlow(resp.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowLeaveBackfillFailed, flow.Status)
	require.Len(t, flow.RemainingParticipants, 1)
	assert.Equal(t, "member-0", flow.RemainingParticipants[0].ID)
}

func TestRescheduleSucceedsWhenEveryoneAgrees(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.completedBooking(t, group(3, true))

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-2",
		Intention:     models.IntentionReschedule,
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.FlowReschedulePolling), resp.Status)
	f.runner.Wait()

	flow, err := f.coord.GetCancelFlow(resp.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowRescheduleSucceeded, flow.Status)
	assert.ElementsMatch(t, []string{"member-0", "member-1"}, flow.Confirmed)

	notes := f.ledger.DrainNotifications("session-1")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationRescheduleSucceeded, notes[0].Kind)
}

func TestRescheduleFailsWhenAnyoneDeclines(t *testing.T) {
	f := newFixture(t, models.InvitationDeclined, nil)
	b := f.completedBooking(t, group(3, true))

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-0",
		Intention:     models.IntentionReschedule,
	})
	require.NoError(t, err)
	f.runner.Wait()

	flow, err := f.coord.GetCancelFlow(resp.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.FlowRescheduleFailed, flow.Status)

	notes := f.ledger.DrainNotifications("session-1")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationRescheduleFailed, notes[0].Kind)
}

func TestRealParticipantsConfirmReschedule(t *testing.T) {
	f := newFixture(t, models.InvitationDeclined, nil)
	f.coord.clock = convergence.Clock{Tick: time.Millisecond, TickSeconds: 0.001}
	b := f.completedBooking(t, group(3, false))

	resp, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID:     b.ID,
		ParticipantID: "member-0",
		Intention:     models.IntentionReschedule,
	})
	require.NoError(t, err)

	_, err = f.coord.ConfirmReschedule(resp.CancelFlowID, "member-0")
	assert.ErrorIs(t, err, ErrNotInGroup)
	_, err = f.coord.ConfirmReschedule(resp.CancelFlowID, "member-1")
	require.NoError(t, err)
	_, err = f.coord.ConfirmReschedule(resp.CancelFlowID, "member-2")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		flow, err := f.coord.GetCancelFlow(resp.CancelFlowID)
		return err == nil && flow.Status == models.FlowRescheduleSucceeded
	}, 5*time.Second, 5*time.Millisecond)

	_, err = f.coord.ConfirmReschedule(resp.CancelFlowID, "member-1")
	assert.ErrorIs(t, err, ErrNotPolling)
}

func TestSecondIntentionDoesNotRestartFlow(t *testing.T) {
	f := newFixture(t, models.InvitationAccepted, nil)
	b := f.completedBooking(t, group(3, true))

	first, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID: b.ID, ParticipantID: "member-0", Intention: models.IntentionLeave,
	})
	require.NoError(t, err)
	second, err := f.coord.RequestCancellation(context.Background(), CancelRequest{
		BookingID: b.ID, ParticipantID: "member-0", Intention: models.IntentionReschedule, CancelFlowID: first.CancelFlowID,
	})
	require.NoError(t, err)
	f.runner.Wait()

	assert.Equal(t, first.CancelFlowID, second.CancelFlowID)
	flow, err := f.coord.GetCancelFlow(first.CancelFlowID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentionLeave, flow.Intention)
}
