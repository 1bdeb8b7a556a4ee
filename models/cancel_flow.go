package models

import (
	"sync"
	"time"
)

type CancelIntention string

const (
	IntentionUnset      CancelIntention = ""
	IntentionReschedule CancelIntention = "reschedule"
	IntentionLeave      CancelIntention = "leave"
)

// Valid reports whether i is one of the two choices offered to the user.
func (i CancelIntention) Valid() bool {
	return i == IntentionReschedule || i == IntentionLeave
}

type CancelFlowStatus string

const (
	FlowAwaitingIntention   CancelFlowStatus = "awaiting_intention"
	FlowReschedulePolling   CancelFlowStatus = "reschedule_polling"
	FlowRescheduleSucceeded CancelFlowStatus = "reschedule_succeeded"
	FlowRescheduleFailed    CancelFlowStatus = "reschedule_failed"
	FlowLeaveBackfillPrompt CancelFlowStatus = "leave_backfill_prompt"
	FlowLeaveCompleted      CancelFlowStatus = "leave_completed"
	FlowLeaveBackfillFailed CancelFlowStatus = "leave_backfill_failed"
)

// Terminal reports whether the flow has finished.
func (s CancelFlowStatus) Terminal() bool {
	switch s {
	case FlowRescheduleSucceeded, FlowRescheduleFailed, FlowLeaveCompleted, FlowLeaveBackfillFailed:
		return true
	}
	return false
}

// CancelFlow tracks one participant leaving or rescheduling a completed booking.
type CancelFlow struct {
	ID                      string
	BookingID               string
	SessionID               string
	CancellingParticipantID string
	CreatedAt               time.Time

	mu                  sync.Mutex
	intention           CancelIntention
	status              CancelFlowStatus
	remaining           []Participant
	backfillDeadline    int64
	excludedSlots       []string
	backfillBookingID   string
	confirmedReschedule map[string]bool
}

func NewCancelFlow(id, bookingID, sessionID, participantID string, now time.Time) *CancelFlow {
	return &CancelFlow{
		ID:                      id,
		BookingID:               bookingID,
		SessionID:               sessionID,
		CancellingParticipantID: participantID,
		CreatedAt:               now,
		status:                  FlowAwaitingIntention,
		confirmedReschedule:     make(map[string]bool),
	}
}

func (f *CancelFlow) Status() CancelFlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *CancelFlow) Intention() CancelIntention {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intention
}

// Commit sets the intention and the data derived from it. It succeeds once:
// the intention is immutable afterwards.
func (f *CancelFlow) Commit(intention CancelIntention, remaining []Participant, deadline int64, excluded []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.intention != IntentionUnset || !intention.Valid() {
		return false
	}
	f.intention = intention
	f.remaining = append([]Participant(nil), remaining...)
	f.backfillDeadline = deadline
	f.excludedSlots = append([]string(nil), excluded...)
	if intention == IntentionReschedule {
		f.status = FlowReschedulePolling
	} else {
		f.status = FlowLeaveBackfillPrompt
	}
	return true
}

// Finish moves a non-terminal flow to a terminal status.
func (f *CancelFlow) Finish(to CancelFlowStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.Terminal() || !to.Terminal() {
		return false
	}
	f.status = to
	return true
}

func (f *CancelFlow) Remaining() []Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Participant(nil), f.remaining...)
}

func (f *CancelFlow) BackfillDeadline() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backfillDeadline
}

func (f *CancelFlow) ExcludedSlots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.excludedSlots...)
}

func (f *CancelFlow) SetBackfillBooking(id string) {
	f.mu.Lock()
	f.backfillBookingID = id
	f.mu.Unlock()
}

func (f *CancelFlow) BackfillBookingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backfillBookingID
}

// ConfirmReschedule records a remaining participant's agreement to the new time.
// It returns false when the participant is not part of the remaining group.
func (f *CancelFlow) ConfirmReschedule(participantID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !containsParticipant(f.remaining, participantID) {
		return false
	}
	f.confirmedReschedule[participantID] = true
	return true
}

// RescheduleConfirmed reports whether participantID agreed to reschedule.
func (f *CancelFlow) RescheduleConfirmed(participantID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmedReschedule[participantID]
}

// CancelFlowView is a point-in-time copy of a flow.
type CancelFlowView struct {
	ID                      string           `json:"id"`
	BookingID               string           `json:"bookingId"`
	SessionID               string           `json:"sessionId"`
	CancellingParticipantID string           `json:"cancellingParticipantId"`
	Intention               CancelIntention  `json:"intention,omitempty"`
	Status                  CancelFlowStatus `json:"status"`
	RemainingParticipants   []Participant    `json:"remainingParticipants"`
	BackfillDeadline        int64            `json:"backfillDeadline"`
	ExcludedSlots           []string         `json:"excludedSlots,omitempty"`
	BackfillBookingID       string           `json:"backfillBookingId,omitempty"`
	Confirmed               []string         `json:"confirmed,omitempty"`
	CreatedAt               time.Time        `json:"createdAt"`
}

func (f *CancelFlow) View() CancelFlowView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := CancelFlowView{
		ID:                      f.ID,
		BookingID:               f.BookingID,
		SessionID:               f.SessionID,
		CancellingParticipantID: f.CancellingParticipantID,
		Intention:               f.intention,
		Status:                  f.status,
		RemainingParticipants:   append([]Participant{}, f.remaining...),
		BackfillDeadline:        f.backfillDeadline,
		ExcludedSlots:           append([]string(nil), f.excludedSlots...),
		BackfillBookingID:       f.backfillBookingID,
		CreatedAt:               f.CreatedAt,
	}
	for _, p := range f.remaining {
		if f.confirmedReschedule[p.ID] {
			v.Confirmed = append(v.Confirmed, p.ID)
		}
	}
	return v
}
