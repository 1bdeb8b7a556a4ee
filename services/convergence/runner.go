package convergence

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Runner schedules convergence loops as independent units of work and caps
// how many run at once. Bookings waiting for a slot stay running with no
// invitations sent.
type Runner struct {
	engine *Engine
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

func NewRunner(engine *Engine, maxConcurrent int64, logger *zap.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		engine: engine,
		sem:    semaphore.NewWeighted(maxConcurrent),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Engine exposes the engine the runner drives.
func (r *Runner) Engine() *Engine {
	return r.engine
}

// Start runs the booking's loop in the background.
func (r *Runner) Start(bookingID string) {
	r.Go(func(ctx context.Context) {
		if err := r.Run(ctx, bookingID); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("convergence loop ended with error", zap.String("bookingId", bookingID), zap.Error(err))
		}
	})
}

// Run runs the booking's loop on the calling goroutine once a slot is free.
func (r *Runner) Run(ctx context.Context, bookingID string) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)
	return r.engine.Run(ctx, bookingID)
}

// Go runs fn in the background, tracked for shutdown. fn must return when ctx ends.
func (r *Runner) Go(fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
}

// Wait blocks until every background unit has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels every background unit and waits for them, or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
