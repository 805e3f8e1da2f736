package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/observability"
)

// Task is a side effect whose failure must never reach the caller.
type Task func(ctx context.Context) error

// BestEffort runs side effects (media cleanup, email) that are allowed to fail.
// Failures and panics are logged and counted, never returned.
type BestEffort struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

// NewBestEffort builds a runner.
func NewBestEffort(logger *zap.Logger, metrics *observability.Metrics) *BestEffort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{logger: logger, metrics: metrics}
}

// Go runs task in the background. The task keeps ctx's values but not its
// cancellation, so it outlives the request that scheduled it. A positive
// timeout bounds the task.
func (b *BestEffort) Go(ctx context.Context, name string, timeout time.Duration, task Task, fields ...zap.Field) {
	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.execute(detached, name, timeout, task, fields)
	}()
}

// Wait blocks until every task started with Go has finished.
func (b *BestEffort) Wait() {
	b.wg.Wait()
}

// Drain waits for background tasks or until ctx is done. It reports whether
// all tasks finished.
func (b *BestEffort) Drain(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *BestEffort) execute(ctx context.Context, name string, timeout time.Duration, task Task, fields []zap.Field) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := b.call(ctx, task)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	b.metrics.RecordSideEffect(name, err == nil)
	if err != nil {
		b.logger.Warn("best-effort task failed",
			append(fields, zap.String("task", name), zap.Error(err))...)
		return
	}
	b.logger.Debug("best-effort task done", append(fields, zap.String("task", name))...)
}

func (b *BestEffort) call(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}
