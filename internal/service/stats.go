package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

// StatsService reads the daily moderation counters
type StatsService struct {
	counts repo.CountStore
	now    func() time.Time
}

// NewStatsService creates a stats service
func NewStatsService(counts repo.CountStore) *StatsService {
	return &StatsService{counts: counts, now: time.Now}
}

// Today returns today's counters for one chat, or for all chats when
// chatID is empty
func (s *StatsService) Today(ctx context.Context, chatID string) (*domain.DailyStats, error) {
	scope := chatID
	if scope == "" {
		scope = ScopeAll
	}

	stats := &domain.DailyStats{Date: s.now().UTC().Format(time.DateOnly)}
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{repo.CounterMessages, &stats.MessagesTotal},
		{repo.CounterSpam, &stats.SpamBlocked},
		{repo.CounterCaptchaKicks, &stats.CaptchaKicks},
		{repo.CounterMediaBlocks, &stats.MediaBlocks},
		{repo.CounterVerified, &stats.Verified},
	} {
		n, err := s.counts.GetCount(ctx, c.name, scope, repo.PeriodDay)
		if err != nil {
			return nil, fmt.Errorf("failed to read counter %s: %w", c.name, err)
		}
		*c.dst = n
	}
	stats.SpamRate = SpamRate(stats.SpamBlocked, stats.MessagesTotal)
	return stats, nil
}

// SpamRate is spam as a percentage of messages, rounded to two decimals
func SpamRate(spam, messages int) float64 {
	if messages <= 0 {
		return 0
	}
	return math.Round(float64(spam)/float64(messages)*10000) / 100
}
