// Package ledger is the in-memory record of bookings, invitations and cancel
// flows. One mutex guards the lookup maps; per-record state is guarded by the
// records themselves.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"huddle/models"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrCancelFlowNotFound = errors.New("cancel flow not found")
)

// Ledger is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	bookings     map[string]*models.Booking
	bookingOrder []string
	// invitation id -> owning booking id
	invitationIndex map[string]string

	flows     map[string]*models.CancelFlow
	flowOrder []string

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		bookings:        make(map[string]*models.Booking),
		invitationIndex: make(map[string]string),
		flows:           make(map[string]*models.CancelFlow),
		now:             time.Now,
	}
}

// NewBookingID allocates an id callers can derive booking fields from before
// the booking exists.
func (l *Ledger) NewBookingID() string {
	return uuid.New().String()
}

// CreateBooking stores a new running booking built from spec.
func (l *Ledger) CreateBooking(spec models.BookingSpec) *models.Booking {
	id := spec.ID
	if id == "" {
		id = l.NewBookingID()
	}
	b := models.NewBooking(id, spec, l.now())
	l.mu.Lock()
	l.bookings[b.ID] = b
	l.bookingOrder = append(l.bookingOrder, b.ID)
	l.mu.Unlock()
	return b
}

func (l *Ledger) GetBooking(id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// BookingsForSession returns the session's bookings in creation order.
func (l *Ledger) BookingsForSession(sessionID string) []*models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.Booking
	for _, id := range l.bookingOrder {
		if b := l.bookings[id]; b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	return out
}

// IssueInvitations creates one pending invitation per candidate, attaches them
// to the booking and indexes them. It returns nil when the booking already
// left running.
func (l *Ledger) IssueInvitations(b *models.Booking, candidates []models.Participant, batchIndex int) []models.Invitation {
	now := l.now()
	invs := make([]*models.Invitation, 0, len(candidates))
	for _, c := range candidates {
		invs = append(invs, &models.Invitation{
			ID:          uuid.New().String(),
			BookingID:   b.ID,
			CandidateID: c.ID,
			Candidate:   c,
			Status:      models.InvitationPending,
			SentAt:      now,
			BatchIndex:  batchIndex,
		})
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !b.AddInvitations(invs) {
		return nil
	}
	out := make([]models.Invitation, 0, len(invs))
	for _, inv := range invs {
		l.invitationIndex[inv.ID] = b.ID
		out = append(out, *inv)
	}
	return out
}

// FindInvitation returns a copy of the invitation.
func (l *Ledger) FindInvitation(id string) (models.Invitation, error) {
	b, err := l.BookingForInvitation(id)
	if err != nil {
		return models.Invitation{}, err
	}
	inv, ok := b.Invitation(id)
	if !ok {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, nil
}

// BookingForInvitation returns the booking that issued the invitation.
func (l *Ledger) BookingForInvitation(id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bookingID, ok := l.invitationIndex[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	b, ok := l.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// RespondToInvitation records a real user's answer. The owning loop folds an
// acceptance into the group at its next tick.
func (l *Ledger) RespondToInvitation(id string, accept bool) (models.Invitation, error) {
	b, err := l.BookingForInvitation(id)
	if err != nil {
		return models.Invitation{}, err
	}
	status := models.InvitationDeclined
	if accept {
		status = models.InvitationAccepted
	}
	if err := b.ResolveInvitation(id, status, l.now()); err != nil {
		return models.Invitation{}, err
	}
	inv, _ := b.Invitation(id)
	return inv, nil
}

// AppendNotification implements notification.Sink.
func (l *Ledger) AppendNotification(bookingID string, n models.Notification) error {
	b, err := l.GetBooking(bookingID)
	if err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = l.now()
	}
	n.BookingID = bookingID
	b.AppendNotification(n)
	return nil
}

// DrainNotifications empties the outbox of every booking owned by the session.
// Each booking's outbox is swapped under its own lock, so concurrent appends
// land either in this drain or the next one.
func (l *Ledger) DrainNotifications(sessionID string) []models.Notification {
	var out []models.Notification
	for _, b := range l.BookingsForSession(sessionID) {
		out = append(out, b.DrainNotifications()...)
	}
	return out
}

// CreateCancelFlow stores a new flow awaiting the user's intention.
func (l *Ledger) CreateCancelFlow(bookingID, sessionID, participantID string) *models.CancelFlow {
	f := models.NewCancelFlow(uuid.New().String(), bookingID, sessionID, participantID, l.now())
	l.mu.Lock()
	l.flows[f.ID] = f
	l.flowOrder = append(l.flowOrder, f.ID)
	l.mu.Unlock()
	return f
}

func (l *Ledger) GetCancelFlow(id string) (*models.CancelFlow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.flows[id]
	if !ok {
		return nil, ErrCancelFlowNotFound
	}
	return f, nil
}

// GetCancelFlowByBooking returns the booking's active flow, or its most recent
// one when none is active.
func (l *Ledger) GetCancelFlowByBooking(bookingID string) (*models.CancelFlow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var latest *models.CancelFlow
	for i := len(l.flowOrder) - 1; i >= 0; i-- {
		f := l.flows[l.flowOrder[i]]
		if f.BookingID != bookingID {
			continue
		}
		if !f.Status().Terminal() {
			return f, nil
		}
		if latest == nil {
			latest = f
		}
	}
	if latest == nil {
		return nil, ErrCancelFlowNotFound
	}
	return latest, nil
}

// ActiveCancelFlow returns the booking's non-terminal flow, creating one when
// there is none. At most one active flow exists per booking.
func (l *Ledger) ActiveCancelFlow(bookingID, sessionID, participantID string) (*models.CancelFlow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.flowOrder) - 1; i >= 0; i-- {
		f := l.flows[l.flowOrder[i]]
		if f.BookingID == bookingID && !f.Status().Terminal() {
			return f, false
		}
	}
	f := models.NewCancelFlow(uuid.New().String(), bookingID, sessionID, participantID, l.now())
	l.flows[f.ID] = f
	l.flowOrder = append(l.flowOrder, f.ID)
	return f, true
}
