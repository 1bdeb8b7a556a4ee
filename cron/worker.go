package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"huddle/models"
	"huddle/services/notification"
	"huddle/services/tasks"
)

// ReminderStore is what the worker needs to turn a reminder into an outbox entry.
type ReminderStore interface {
	GetBooking(id string) (*models.Booking, error)
	AppendNotification(bookingID string, n models.Notification) error
}

// InitReminderWorker runs the async worker in the background and returns the
// server so the caller can shut it down.
func InitReminderWorker(redisOpts asynq.RedisClientOpt, store ReminderStore, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(store, logger))

	go monitorRedisConnection(redisOpts, logger)

	go func() {
		logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("Reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("Reminder worker giving up; reminders disabled")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}

func handleReminderTask(store ReminderStore, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Warn("Invalid reminder payload", zap.Error(err))
			return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
		}

		b, err := store.GetBooking(p.BookingID)
		if err != nil {
			// Bookings live in memory and do not survive a restart.
			logger.Warn("Reminder for unknown booking", zap.String("bookingId", p.BookingID))
			return fmt.Errorf("booking %s: %v: %w", p.BookingID, err, asynq.SkipRetry)
		}
		if b.Status() != models.BookingCompleted {
			logger.Info("Skipping reminder for booking that is no longer confirmed",
				zap.String("bookingId", b.ID), zap.String("status", string(b.Status())))
			return nil
		}

		n := notification.Reminder(b.View())
		if p.Body != "" {
			n.Message = p.Body
		}
		if err := store.AppendNotification(b.ID, n); err != nil {
			logger.Error("Failed to append reminder", zap.String("bookingId", b.ID), zap.Error(err))
			return err
		}
		logger.Info("Reminder delivered to outbox", zap.String("bookingId", b.ID), zap.String("fireDate", p.FireDate))
		return nil
	}
}

// monitorRedisConnection pings the queue's Redis periodically to surface
// failures at runtime.
func monitorRedisConnection(opts asynq.RedisClientOpt, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	defer client.Close()

	ctx := context.Background()
	for {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Reminder queue Redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
