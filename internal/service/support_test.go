package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/data"
)

func TestSpamRate(t *testing.T) {
	assert.Zero(t, SpamRate(0, 0))
	assert.Zero(t, SpamRate(3, 0))
	assert.Equal(t, 50.0, SpamRate(1, 2))
	assert.Equal(t, 33.33, SpamRate(1, 3))
	assert.Equal(t, 66.67, SpamRate(2, 3))
}

func TestStats_ScopedByChat(t *testing.T) {
	counts := data.NewMemCountStore()
	rec := NewRecorder(nil, counts, nil, nil)
	stats := NewStatsService(counts)
	ctx := context.Background()

	rec.Message(domain.MessageLog{ChatID: "a"})
	rec.Message(domain.MessageLog{ChatID: "a"})
	rec.Message(domain.MessageLog{ChatID: "b"})
	rec.Spam(domain.SpamReport{ChatID: "a", Source: SourceRules})
	rec.Verification(domain.VerificationEvent{ChatID: "b", Outcome: domain.OutcomeTimeout})
	rec.Verification(domain.VerificationEvent{ChatID: "b", Outcome: domain.OutcomeFailed})

	a, err := stats.Today(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, a.MessagesTotal)
	assert.Equal(t, 1, a.SpamBlocked)
	assert.Equal(t, 50.0, a.SpamRate)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), a.Date)

	all, err := stats.Today(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.MessagesTotal)
	assert.Equal(t, 2, all.CaptchaKicks)
	assert.Equal(t, 33.33, all.SpamRate)
}

func TestDispatcher_CloseDeletesPendingNotices(t *testing.T) {
	platform := &fakePlatform{}
	clock := newFakeClock()
	d := NewDispatcher(platform, nil, clock, nil)

	var got string
	d.SendMessage("c", "hello", time.Minute, func(id string) { got = id })
	d.SendMessage("c", "prompt", 0, nil)
	assert.Equal(t, "p1", got)

	d.Close()
	assert.Equal(t, []string{"p1"}, platform.args("delete"))

	// the stopped timer never deletes twice
	clock.Advance(time.Hour)
	assert.Equal(t, []string{"p1"}, platform.args("delete"))

	// after Close a notice is deleted right away
	d.SendMessage("c", "late", time.Minute, nil)
	assert.Equal(t, []string{"p1", "p3"}, platform.args("delete"))
}

func TestDispatcher_SkipsEmptyMessageID(t *testing.T) {
	platform := &fakePlatform{}
	d := NewDispatcher(platform, nil, newFakeClock(), nil)

	d.DeleteMessage("c", "")
	d.RemoveMember("c", "u", "test")
	assert.Empty(t, platform.args("delete"))
	assert.Equal(t, []string{"u"}, platform.args("remove"))
}

func TestJanitor_PruneOnce(t *testing.T) {
	repos, err := data.NewRepositories(filepath.Join(t.TempDir(), "chatguard.db"))
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	now := time.Now()
	for _, age := range []time.Duration{40 * 24 * time.Hour, 31 * 24 * time.Hour, time.Hour} {
		require.NoError(t, repos.Report.LogMessage(ctx, &domain.MessageLog{ChatID: "c", UserID: "u", CreatedAt: now.Add(-age)}))
	}

	j := NewJanitor(repos.Report, 30*24*time.Hour, nil)
	assert.Equal(t, int64(2), j.PruneOnce(ctx))
	assert.Zero(t, j.PruneOnce(ctx))
}

func TestJanitor_DisabledRetention(t *testing.T) {
	j := NewJanitor(nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NoError(t, j.Run(ctx))
}

var _ repo.PlatformRepo = (*fakePlatform)(nil)
