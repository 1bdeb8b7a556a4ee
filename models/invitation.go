package models

import (
	"fmt"
	"time"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is one outreach to one candidate for one booking. It is kept for
// history after the booking reaches a terminal state.
type Invitation struct {
	ID          string           `json:"id"`
	BookingID   string           `json:"bookingId"`
	CandidateID string           `json:"candidateId"`
	Candidate   Participant      `json:"candidate"`
	Status      InvitationStatus `json:"status"`
	SentAt      time.Time        `json:"sentAt"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
	BatchIndex  int              `json:"batchIndex"`
}

// resolve moves a pending invitation to a terminal status. Non-pending invitations are left alone.
func (inv *Invitation) resolve(status InvitationStatus, at time.Time) error {
	if inv.Status != InvitationPending {
		return fmt.Errorf("%w: invitation %s is %s", ErrInvitationResolved, inv.ID, inv.Status)
	}
	if status == InvitationPending {
		return fmt.Errorf("invitation %s: cannot resolve to pending", inv.ID)
	}
	inv.Status = status
	inv.RespondedAt = &at
	return nil
}
