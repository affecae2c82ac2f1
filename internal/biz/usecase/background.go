package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBackgroundTimeout = 10 * time.Second
	defaultBackgroundLimit   = 64
)

// Background runs fire-and-forget work such as persistence writes and
// platform calls. Failures are logged and never reach the caller.
//
// At most limit tasks run at once. Tasks over the limit wait for a slot
// without blocking the caller, and the wait counts against their timeout.
type Background struct {
	wg      sync.WaitGroup
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger
}

// NewBackground creates a runner whose tasks each get timeout to finish.
// A limit of zero or less uses the default.
func NewBackground(timeout time.Duration, limit int, logger *zap.Logger) *Background {
	if timeout <= 0 {
		timeout = defaultBackgroundTimeout
	}
	if limit <= 0 {
		limit = defaultBackgroundLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Background{sem: semaphore.NewWeighted(int64(limit)), timeout: timeout, logger: logger}
}

// Go starts fn in its own goroutine. A nil Background runs fn inline.
func (b *Background) Go(op string, fn func(ctx context.Context) error) {
	if b == nil {
		_ = fn(context.Background())
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.sem.Acquire(ctx, 1); err != nil {
			b.logger.Warn("background operation dropped, runner saturated", zap.String("op", op), zap.Error(err))
			return
		}
		defer b.sem.Release(1)
		if err := fn(ctx); err != nil {
			b.logger.Warn("background operation failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has returned
func (b *Background) Wait() {
	if b == nil {
		return
	}
	b.wg.Wait()
}
