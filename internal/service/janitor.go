package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/repo"
)

const defaultJanitorInterval = 6 * time.Hour

// Janitor prunes message logs past their retention
type Janitor struct {
	reports   repo.ReportRepo
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewJanitor creates a janitor that runs every 6 hours
func NewJanitor(reports repo.ReportRepo, retention time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		reports:   reports,
		retention: retention,
		interval:  defaultJanitorInterval,
		now:       time.Now,
		logger:    logger.Named("janitor"),
	}
}

// Run prunes once at start and then on every tick until ctx is done
func (j *Janitor) Run(ctx context.Context) error {
	if j.retention <= 0 {
		j.logger.Info("log retention disabled")
		return nil
	}

	j.PruneOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.PruneOnce(ctx)
		}
	}
}

// PruneOnce drops message logs older than the retention
func (j *Janitor) PruneOnce(ctx context.Context) int64 {
	count, err := j.reports.Prune(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.logger.Warn("prune failed", zap.Error(err))
		return 0
	}
	if count > 0 {
		j.logger.Info("pruned message logs", zap.Int64("count", count))
	}
	return count
}
