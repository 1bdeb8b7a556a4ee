package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/models"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "reminder:b1"}, nil
}

func TestNewReminderTask(t *testing.T) {
	at := time.Date(2025, 3, 1, 7, 30, 0, 0, time.UTC)
	task, opts, err := NewReminderTask(models.ReminderPayload{BookingID: "b1"}, at)
	require.NoError(t, err)
	assert.Equal(t, TypeSendReminder, task.Type())

	var p models.ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "b1", p.BookingID)

	types := map[asynq.OptionType]interface{}{}
	for _, o := range opts {
		types[o.Type()] = o.Value()
	}
	assert.Equal(t, at, types[asynq.ProcessAtOpt])
	assert.Equal(t, "reminder:b1", types[asynq.TaskIDOpt])
}

func TestScheduleReminder(t *testing.T) {
	f := &fakeEnqueuer{}
	s := NewReminderScheduler(f, nil)
	at := time.Now().Add(time.Hour)
	require.NoError(t, s.ScheduleReminder(context.Background(), "b1", at))
	require.Len(t, f.tasks, 1)
	assert.Equal(t, TypeSendReminder, f.tasks[0].Type())

	f.err = errors.New("redis down")
	assert.Error(t, s.ScheduleReminder(context.Background(), "b2", at))
}
