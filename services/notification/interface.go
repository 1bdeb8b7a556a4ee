package notification

import (
	"huddle/models"
)

// Sink is the per-booking outbox. The convergence engine only ever appends;
// the chat layer drains.
type Sink interface {
	AppendNotification(bookingID string, n models.Notification) error
}
