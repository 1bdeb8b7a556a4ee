package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"huddle/models"
)

const TypeSendReminder = "reminder:send"

// NewReminderTask builds a reminder task processed at fireAt. The task id is
// derived from the booking so a booking is reminded at most once.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:" + payload.BookingID),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

// Enqueuer is the part of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderScheduler enqueues reminders for completed bookings.
type ReminderScheduler struct {
	client Enqueuer
	logger *zap.Logger
}

func NewReminderScheduler(client Enqueuer, logger *zap.Logger) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{client: client, logger: logger}
}

func (s *ReminderScheduler) ScheduleReminder(ctx context.Context, bookingID string, at time.Time) error {
	task, opts, err := NewReminderTask(models.ReminderPayload{
		BookingID: bookingID,
		Title:     "Upcoming activity",
		FireDate:  at.UTC().Format(time.RFC3339),
	}, at)
	if err != nil {
		return fmt.Errorf("failed to build reminder task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder for booking %s: %w", bookingID, err)
	}
	s.logger.Info("Reminder scheduled", zap.String("bookingId", bookingID), zap.String("taskId", info.ID), zap.Time("fireAt", at))
	return nil
}
