package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/models"
)

func pool(n int) []models.Participant {
	var out []models.Participant
	for i := 0; i < n; i++ {
		out = append(out, models.Participant{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("P%d", i), IsMock: true})
	}
	return out
}

func TestCreateAndGetBooking(t *testing.T) {
	l := New()
	b := l.CreateBooking(models.BookingSpec{SessionID: "s1", Activity: "tennis", Headcount: 2})

	got, err := l.GetBooking(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.Equal(t, models.BookingRunning, got.Status())

	_, err = l.GetBooking("nope")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCreateBookingKeepsProvidedID(t *testing.T) {
	l := New()
	id := l.NewBookingID()
	b := l.CreateBooking(models.BookingSpec{ID: id, SessionID: "s1"})
	assert.Equal(t, id, b.ID)
}

func TestBookingsForSession(t *testing.T) {
	l := New()
	a := l.CreateBooking(models.BookingSpec{SessionID: "s1"})
	l.CreateBooking(models.BookingSpec{SessionID: "s2"})
	c := l.CreateBooking(models.BookingSpec{SessionID: "s1"})

	got := l.BookingsForSession("s1")
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, c.ID, got[1].ID)
	assert.Empty(t, l.BookingsForSession("none"))
}

func TestInvitationLookupAndResponse(t *testing.T) {
	l := New()
	b := l.CreateBooking(models.BookingSpec{SessionID: "s1", Candidates: pool(3), Headcount: 1})
	invs := l.IssueInvitations(b, b.NextBatch(10), 0)
	require.Len(t, invs, 3)

	owner, err := l.BookingForInvitation(invs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, owner.ID)

	inv, err := l.FindInvitation(invs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, "p1", inv.CandidateID)

	resp, err := l.RespondToInvitation(invs[1].ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, resp.Status)
	require.NotNil(t, resp.RespondedAt)

	_, err = l.RespondToInvitation(invs[1].ID, false)
	assert.Error(t, err, "a resolved invitation is terminal")

	assert.Equal(t, 1, b.FoldAccepted())
	assert.Equal(t, 1, b.FoldAccepted(), "folding is idempotent")

	_, err = l.FindInvitation("missing")
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestDrainNotificationsIsLossFree(t *testing.T) {
	l := New()
	b1 := l.CreateBooking(models.BookingSpec{SessionID: "s1"})
	b2 := l.CreateBooking(models.BookingSpec{SessionID: "s1"})
	other := l.CreateBooking(models.BookingSpec{SessionID: "s2"})
	require.NoError(t, l.AppendNotification(other.ID, models.Notification{Message: "other"}))

	const perBooking = 200
	var wg sync.WaitGroup
	for _, b := range []*models.Booking{b1, b2} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perBooking; i++ {
				assert.NoError(t, l.AppendNotification(id, models.Notification{Message: fmt.Sprint(i)}))
			}
		}(b.ID)
	}

	seen := map[string]bool{}
	var mu sync.Mutex
	drain := func() {
		for _, n := range l.DrainNotifications("s1") {
			mu.Lock()
			assert.False(t, seen[n.ID], "notification drained twice")
			seen[n.ID] = true
			mu.Unlock()
		}
	}
	stop := make(chan struct{})
	var drainers sync.WaitGroup
	drainers.Add(1)
	go func() {
		defer drainers.Done()
		for {
			select {
			case <-stop:
				return
			default:
				drain()
			}
		}
	}()
	wg.Wait()
	close(stop)
	drainers.Wait()
	drain()

	assert.Len(t, seen, 2*perBooking)
	assert.Len(t, l.DrainNotifications("s2"), 1)
	assert.Empty(t, l.DrainNotifications("s2"))
}

func TestAppendNotificationStampsFields(t *testing.T) {
	l := New()
	b := l.CreateBooking(models.BookingSpec{SessionID: "s1"})
	require.NoError(t, l.AppendNotification(b.ID, models.Notification{Kind: models.NotificationReminder}))

	notes := l.DrainNotifications("s1")
	require.Len(t, notes, 1)
	assert.NotEmpty(t, notes[0].ID)
	assert.Equal(t, b.ID, notes[0].BookingID)
	assert.False(t, notes[0].CreatedAt.IsZero())

	assert.ErrorIs(t, l.AppendNotification("missing", models.Notification{}), ErrBookingNotFound)
}

func TestCancelFlowLookups(t *testing.T) {
	l := New()
	f, created := l.ActiveCancelFlow("b1", "s1", "p1")
	require.True(t, created)

	again, created := l.ActiveCancelFlow("b1", "s1", "p1")
	assert.False(t, created)
	assert.Equal(t, f.ID, again.ID)

	got, err := l.GetCancelFlow(f.ID)
	require.NoError(t, err)
	assert.Same(t, f, got)

	byBooking, err := l.GetCancelFlowByBooking("b1")
	require.NoError(t, err)
	assert.Equal(t, f.ID, byBooking.ID)

	require.True(t, f.Commit(models.IntentionReschedule, nil, 0, nil))
	require.True(t, f.Finish(models.FlowRescheduleSucceeded))

	next, created := l.ActiveCancelFlow("b1", "s1", "p1")
	assert.True(t, created, "a finished flow does not block a new one")
	assert.NotEqual(t, f.ID, next.ID)

	_, err = l.GetCancelFlow("missing")
	assert.ErrorIs(t, err, ErrCancelFlowNotFound)
	_, err = l.GetCancelFlowByBooking("missing")
	assert.ErrorIs(t, err, ErrCancelFlowNotFound)

	explicit := l.CreateCancelFlow("b2", "s1", "p2")
	assert.Equal(t, models.FlowAwaitingIntention, explicit.Status())
}
