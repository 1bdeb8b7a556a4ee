package models

import "time"

// NotificationKind tags an outbox entry so the chat layer can pick how to render it.
type NotificationKind string

const (
	NotificationBookingCompleted    NotificationKind = "booking_completed"
	NotificationBookingFailed       NotificationKind = "booking_failed"
	NotificationBookingCancelled    NotificationKind = "booking_cancelled"
	NotificationBookingError        NotificationKind = "booking_error"
	NotificationRescheduleSucceeded NotificationKind = "reschedule_succeeded"
	NotificationRescheduleFailed    NotificationKind = "reschedule_failed"
	NotificationMemberLeft          NotificationKind = "member_left"
	NotificationBackfillCompleted   NotificationKind = "backfill_completed"
	NotificationBackfillFailed      NotificationKind = "backfill_failed"
	NotificationReminder            NotificationKind = "reminder"
)

// Notification is one outbox entry appended by a background loop and drained by the chat layer.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	BookingID string           `json:"bookingId"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ReminderPayload is the asynq payload for an upcoming-event reminder.
type ReminderPayload struct {
	BookingID string `json:"bookingId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	FireDate  string `json:"fireDate"`
}
