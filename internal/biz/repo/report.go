package repo

import (
	"context"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// ReportRepo is the append-only moderation log
type ReportRepo interface {
	LogMessage(ctx context.Context, msg *domain.MessageLog) error
	LogSpam(ctx context.Context, report *domain.SpamReport) error
	LogVerification(ctx context.Context, ev *domain.VerificationEvent) error
	LogMediaBlock(ctx context.Context, block *domain.MediaBlock) error

	RecentSpam(ctx context.Context, limit int) ([]*domain.SpamReport, error)
	// Prune drops message logs older than before
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Counter names tracked per day
const (
	CounterMessages     = "messages_total"
	CounterSpam         = "spam_blocked"
	CounterCaptchaKicks = "captcha_kicks"
	CounterMediaBlocks  = "media_blocks"
	CounterVerified     = "verified"
)

// Count periods
const (
	PeriodTotal = "total"
	PeriodDay   = "day"
)

// CountStore keeps bucketed counters
type CountStore interface {
	Increment(ctx context.Context, name, val string) error
	GetCount(ctx context.Context, name, val, period string) (int, error)
}

// ClassifierRepo is an optional external spam classifier
type ClassifierRepo interface {
	IsSpam(ctx context.Context, text string) (bool, error)
}
