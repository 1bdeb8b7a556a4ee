package models

import (
	"sync"
	"time"
)

type BookingStatus string

const (
	BookingRunning   BookingStatus = "running"
	BookingCompleted BookingStatus = "completed"
	BookingFailed    BookingStatus = "failed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingFailed || s == BookingCancelled
}

// BookingVariant selects the tuning preset a booking's loop runs with.
type BookingVariant string

const (
	VariantStandard BookingVariant = "standard"
	VariantBackfill BookingVariant = "backfill"
)

// BookingSpec carries everything needed to open a booking. It is not validated here.
type BookingSpec struct {
	ID                     string // optional; the ledger assigns one when empty
	SessionID              string
	ClientID               *string
	Activity               string
	Location               string
	DesiredTime            string
	Headcount              int
	Candidates             []Participant
	SpeedMultiplier        float64
	GenderPreference       string
	Level                  string
	Pace                   string
	AvailabilitySlots      []string
	AdditionalRequirements string
	MatchStats             MatchStats
	Variant                BookingVariant
	ParentBookingID        string
	ExcludedSlots          []string
}

// Booking is one convergence run toward a target headcount.
//
// Exported fields are fixed at creation. Everything that changes while the
// loop runs sits behind mu and is reached through methods, so the API path can
// read a consistent view while the loop is mutating.
type Booking struct {
	ID                     string
	SessionID              string
	ClientID               *string
	Activity               string
	Location               string
	DesiredTime            string
	Headcount              int
	Candidates             []Participant
	CreatedAt              time.Time
	GenderPreference       string
	Level                  string
	Pace                   string
	AdditionalRequirements string
	MatchStats             MatchStats
	Variant                BookingVariant
	ParentBookingID        string
	ExcludedSlots          []string

	mu              sync.Mutex
	status          BookingStatus
	currentBatch    int
	invitations     []*Invitation
	accepted        []Participant
	speedMultiplier float64
	activeSlots     []string
	selectedSlot    *ResolvedSlot
	notifications   []Notification
}

// NewBooking builds a running booking from spec.
func NewBooking(id string, spec BookingSpec, now time.Time) *Booking {
	variant := spec.Variant
	if variant == "" {
		variant = VariantStandard
	}
	speed := spec.SpeedMultiplier
	if speed <= 0 {
		speed = 1
	}
	return &Booking{
		ID:                     id,
		SessionID:              spec.SessionID,
		ClientID:               spec.ClientID,
		Activity:               spec.Activity,
		Location:               spec.Location,
		DesiredTime:            spec.DesiredTime,
		Headcount:              spec.Headcount,
		Candidates:             append([]Participant(nil), spec.Candidates...),
		CreatedAt:              now,
		GenderPreference:       spec.GenderPreference,
		Level:                  spec.Level,
		Pace:                   spec.Pace,
		AdditionalRequirements: spec.AdditionalRequirements,
		MatchStats:             spec.MatchStats,
		Variant:                variant,
		ParentBookingID:        spec.ParentBookingID,
		ExcludedSlots:          append([]string(nil), spec.ExcludedSlots...),
		status:                 BookingRunning,
		speedMultiplier:        speed,
		activeSlots:            append([]string(nil), spec.AvailabilitySlots...),
	}
}

func (b *Booking) Status() BookingStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Finish moves a running booking to a terminal status. It returns false when the
// booking already left running, so terminal states are never reopened or overwritten.
func (b *Booking) Finish(to BookingStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != BookingRunning || !to.Terminal() {
		return false
	}
	b.status = to
	return true
}

func (b *Booking) CurrentBatch() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentBatch
}

// AdvanceBatch moves the cursor to the next batch.
func (b *Booking) AdvanceBatch() {
	b.mu.Lock()
	b.currentBatch++
	b.mu.Unlock()
}

// NextBatch returns the candidates of the current batch, or nil when the pool is exhausted.
func (b *Booking) NextBatch(size int) []Participant {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := b.currentBatch * size
	if size <= 0 || start >= len(b.Candidates) {
		return nil
	}
	end := start + size
	if end > len(b.Candidates) {
		end = len(b.Candidates)
	}
	return append([]Participant(nil), b.Candidates[start:end]...)
}

// AddInvitations records freshly dispatched invitations. It refuses once the booking is terminal.
func (b *Booking) AddInvitations(invs []*Invitation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != BookingRunning {
		return false
	}
	b.invitations = append(b.invitations, invs...)
	return true
}

// Invitations returns copies of every invitation issued so far.
func (b *Booking) Invitations() []Invitation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Invitation, 0, len(b.invitations))
	for _, inv := range b.invitations {
		out = append(out, *inv)
	}
	return out
}

// PendingInBatch returns copies of the still-pending invitations sent in batch idx.
func (b *Booking) PendingInBatch(idx int) []Invitation {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Invitation
	for _, inv := range b.invitations {
		if inv.BatchIndex == idx && inv.Status == InvitationPending {
			out = append(out, *inv)
		}
	}
	return out
}

// Invitation returns a copy of the invitation with the given id.
func (b *Booking) Invitation(id string) (Invitation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inv := range b.invitations {
		if inv.ID == id {
			return *inv, true
		}
	}
	return Invitation{}, false
}

// ResolveInvitation moves a pending invitation to status. Both the loop and
// real-user responses go through here; whichever arrives second gets an error.
func (b *Booking) ResolveInvitation(id string, status InvitationStatus, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inv := range b.invitations {
		if inv.ID == id {
			return inv.resolve(status, at)
		}
	}
	return ErrUnknownInvitation
}

// FoldAccepted adds every accepted invitation's candidate to the accepted set
// unless already present and returns the accepted count. Safe to call repeatedly.
func (b *Booking) FoldAccepted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inv := range b.invitations {
		if inv.Status != InvitationAccepted {
			continue
		}
		if !containsParticipant(b.accepted, inv.CandidateID) {
			b.accepted = append(b.accepted, inv.Candidate)
		}
	}
	return len(b.accepted)
}

func (b *Booking) AcceptedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.accepted)
}

// Accepted returns a copy of the accepted participants in acceptance order.
func (b *Booking) Accepted() []Participant {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Participant(nil), b.accepted...)
}

func (b *Booking) SpeedMultiplier() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speedMultiplier
}

func (b *Booking) SetSpeedMultiplier(m float64) {
	b.mu.Lock()
	b.speedMultiplier = m
	b.mu.Unlock()
}

// ActiveSlots returns the availability slots still feasible for the whole group.
func (b *Booking) ActiveSlots() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.activeSlots...)
}

// NarrowSlots intersects the active slots with every accepted participant's
// availability. The narrowed list is kept only when it is non-empty.
func (b *Booking) NarrowSlots() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.activeSlots
	for _, p := range b.accepted {
		if len(p.AvailabilitySlots) == 0 {
			continue
		}
		if len(current) == 0 {
			current = append([]string(nil), p.AvailabilitySlots...)
			continue
		}
		var next []string
		for _, s := range current {
			if p.HasSlot(s) {
				next = append(next, s)
			}
		}
		if len(next) == 0 {
			break
		}
		current = next
	}
	b.activeSlots = current
	return append([]string(nil), current...)
}

func (b *Booking) SetSelectedSlot(s ResolvedSlot) {
	b.mu.Lock()
	b.selectedSlot = &s
	b.mu.Unlock()
}

func (b *Booking) SelectedSlot() (ResolvedSlot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selectedSlot == nil {
		return ResolvedSlot{}, false
	}
	return *b.selectedSlot, true
}

// AppendNotification adds n to the outbox. Only DrainNotifications ever removes entries.
func (b *Booking) AppendNotification(n Notification) {
	b.mu.Lock()
	b.notifications = append(b.notifications, n)
	b.mu.Unlock()
}

// DrainNotifications returns and clears the outbox in one step.
func (b *Booking) DrainNotifications() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notifications
	b.notifications = nil
	return out
}

// BookingView is a point-in-time copy of a booking for responses and logs.
type BookingView struct {
	ID                     string         `json:"id"`
	SessionID              string         `json:"sessionId"`
	ClientID               *string        `json:"clientId,omitempty"`
	Activity               string         `json:"activity"`
	Location               string         `json:"location"`
	DesiredTime            string         `json:"desiredTime,omitempty"`
	Headcount              int            `json:"headcount"`
	Status                 BookingStatus  `json:"status"`
	Variant                BookingVariant `json:"variant"`
	ParentBookingID        string         `json:"parentBookingId,omitempty"`
	CandidateCount         int            `json:"candidateCount"`
	CurrentBatch           int            `json:"currentBatch"`
	Invitations            []Invitation   `json:"invitations"`
	AcceptedParticipants   []Participant  `json:"acceptedParticipants"`
	SpeedMultiplier        float64        `json:"speedMultiplier"`
	GenderPreference       string         `json:"genderPreference,omitempty"`
	Level                  string         `json:"level,omitempty"`
	Pace                   string         `json:"pace,omitempty"`
	AvailabilitySlots      []string       `json:"availabilitySlots,omitempty"`
	ExcludedSlots          []string       `json:"excludedSlots,omitempty"`
	AdditionalRequirements string         `json:"additionalRequirements,omitempty"`
	MatchStats             MatchStats     `json:"matchStats"`
	SelectedSlot           *ResolvedSlot  `json:"selectedSlot,omitempty"`
	PendingNotifications   int            `json:"pendingNotifications"`
	CreatedAt              time.Time      `json:"createdAt"`
}

// View snapshots the booking.
func (b *Booking) View() BookingView {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := BookingView{
		ID:                     b.ID,
		SessionID:              b.SessionID,
		ClientID:               b.ClientID,
		Activity:               b.Activity,
		Location:               b.Location,
		DesiredTime:            b.DesiredTime,
		Headcount:              b.Headcount,
		Status:                 b.status,
		Variant:                b.Variant,
		ParentBookingID:        b.ParentBookingID,
		CandidateCount:         len(b.Candidates),
		CurrentBatch:           b.currentBatch,
		Invitations:            make([]Invitation, 0, len(b.invitations)),
		AcceptedParticipants:   append([]Participant{}, b.accepted...),
		SpeedMultiplier:        b.speedMultiplier,
		GenderPreference:       b.GenderPreference,
		Level:                  b.Level,
		Pace:                   b.Pace,
		AvailabilitySlots:      append([]string(nil), b.activeSlots...),
		ExcludedSlots:          b.ExcludedSlots,
		AdditionalRequirements: b.AdditionalRequirements,
		MatchStats:             b.MatchStats,
		PendingNotifications:   len(b.notifications),
		CreatedAt:              b.CreatedAt,
	}
	for _, inv := range b.invitations {
		v.Invitations = append(v.Invitations, *inv)
	}
	if b.selectedSlot != nil {
		s := *b.selectedSlot
		v.SelectedSlot = &s
	}
	return v
}

func containsParticipant(ps []Participant, id string) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}
