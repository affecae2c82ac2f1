package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

// ScopeAll is the counter value aggregating every chat
const ScopeAll = "all"

// Recorder persists moderation events to the report log and bumps the
// daily counters. All writes happen in the background.
type Recorder struct {
	reports repo.ReportRepo
	counts  repo.CountStore
	bg      *usecase.Background
	logger  *zap.Logger
}

// NewRecorder creates a recorder; reports may be nil to keep counters only
func NewRecorder(reports repo.ReportRepo, counts repo.CountStore, bg *usecase.Background, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{reports: reports, counts: counts, bg: bg, logger: logger.Named("recorder")}
}

var _ usecase.Recorder = (*Recorder)(nil)

func (r *Recorder) Message(msg domain.MessageLog) {
	r.bg.Go("report.message", func(ctx context.Context) error {
		var errs []error
		if r.reports != nil {
			errs = append(errs, r.reports.LogMessage(ctx, &msg))
		}
		errs = append(errs, r.count(ctx, repo.CounterMessages, msg.ChatID))
		return errors.Join(errs...)
	})
}

func (r *Recorder) Spam(report domain.SpamReport) {
	decisionCount.WithLabelValues("spam_" + report.Source).Inc()
	r.logger.Info("spam removed",
		zap.String("chat_id", report.ChatID),
		zap.String("user_id", report.UserID),
		zap.String("message_id", report.MessageID),
		zap.Int("score", report.Score),
		zap.Strings("reasons", report.Reasons),
		zap.String("source", report.Source))

	r.bg.Go("report.spam", func(ctx context.Context) error {
		var errs []error
		if r.reports != nil {
			errs = append(errs, r.reports.LogSpam(ctx, &report))
		}
		errs = append(errs, r.count(ctx, repo.CounterSpam, report.ChatID))
		return errors.Join(errs...)
	})
}

func (r *Recorder) Verification(ev domain.VerificationEvent) {
	verificationOutcomeCount.WithLabelValues(string(ev.Outcome)).Inc()
	r.logger.Info("verification finished",
		zap.String("chat_id", ev.ChatID),
		zap.String("user_id", ev.UserID),
		zap.String("outcome", string(ev.Outcome)),
		zap.Int("attempts", ev.Attempts))

	counter := repo.CounterCaptchaKicks
	if ev.Outcome == domain.OutcomeVerified {
		counter = repo.CounterVerified
	}
	r.bg.Go("report.verification", func(ctx context.Context) error {
		var errs []error
		if r.reports != nil {
			errs = append(errs, r.reports.LogVerification(ctx, &ev))
		}
		errs = append(errs, r.count(ctx, counter, ev.ChatID))
		return errors.Join(errs...)
	})
}

func (r *Recorder) MediaBlock(block domain.MediaBlock) {
	decisionCount.WithLabelValues("media_block").Inc()
	r.logger.Info("media blocked",
		zap.String("chat_id", block.ChatID),
		zap.String("user_id", block.UserID),
		zap.String("message_id", block.MessageID))

	r.bg.Go("report.media_block", func(ctx context.Context) error {
		var errs []error
		if r.reports != nil {
			errs = append(errs, r.reports.LogMediaBlock(ctx, &block))
		}
		errs = append(errs, r.count(ctx, repo.CounterMediaBlocks, block.ChatID))
		return errors.Join(errs...)
	})
}

func (r *Recorder) count(ctx context.Context, name, chatID string) error {
	if r.counts == nil {
		return nil
	}
	if err := r.counts.Increment(ctx, name, ScopeAll); err != nil {
		return err
	}
	if chatID == "" {
		return nil
	}
	return r.counts.Increment(ctx, name, chatID)
}
