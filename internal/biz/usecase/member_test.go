package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

func TestMemberUsecase_ObserveKeepsFirstJoin(t *testing.T) {
	r := newMockMemberRepo()
	uc := NewMemberUsecase(r, nil, nil)
	ctx := context.Background()
	key := domain.MemberKey{ChatID: "c", UserID: "u"}
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := uc.Observe(ctx, key, first)
	assert.Equal(t, first, rec.JoinedAt)

	rec = uc.Observe(ctx, key, first.Add(time.Hour))
	assert.Equal(t, first, rec.JoinedAt)

	stored, err := r.Get(ctx, "c", "u")
	require.NoError(t, err)
	assert.Equal(t, first, stored.JoinedAt)
}

func TestMemberUsecase_GetUnknown(t *testing.T) {
	uc := NewMemberUsecase(newMockMemberRepo(), nil, nil)
	assert.Nil(t, uc.Get(context.Background(), domain.MemberKey{ChatID: "c", UserID: "u"}))
}

func TestMemberUsecase_ReadsThroughRepo(t *testing.T) {
	r := newMockMemberRepo()
	joined := time.Date(2025, 12, 24, 18, 0, 0, 0, time.UTC)
	require.NoError(t, r.Insert(context.Background(), &domain.MemberRecord{ChatID: "c", UserID: "u", JoinedAt: joined}))

	uc := NewMemberUsecase(r, nil, nil)
	rec := uc.Get(context.Background(), domain.MemberKey{ChatID: "c", UserID: "u"})
	require.NotNil(t, rec)
	assert.Equal(t, joined, rec.JoinedAt)

	// cached after the first read
	r.fail = true
	assert.NotNil(t, uc.Get(context.Background(), domain.MemberKey{ChatID: "c", UserID: "u"}))
}

func TestMemberUsecase_StoreFailureReadsAsUnknown(t *testing.T) {
	r := newMockMemberRepo()
	r.fail = true
	uc := NewMemberUsecase(r, nil, nil)
	assert.Nil(t, uc.Get(context.Background(), domain.MemberKey{ChatID: "c", UserID: "u"}))
}

func TestWhitelistUsecase(t *testing.T) {
	r := newMockWhitelistRepo()
	uc := NewWhitelistUsecase(r, nil)
	ctx := context.Background()

	require.Error(t, uc.Add(ctx, " ", "", "admin"))
	require.NoError(t, uc.Add(ctx, "42", "@alice", "admin"))
	assert.True(t, uc.IsWhitelisted(ctx, "42"))

	list, err := uc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)

	removed, err := uc.Remove(ctx, "42")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = uc.Remove(ctx, "42")
	require.NoError(t, err)
	assert.False(t, removed)

	r.fail = true
	assert.False(t, uc.IsWhitelisted(ctx, "42"))
}

func TestProfileProvider_ReloadKeepsPreviousOnError(t *testing.T) {
	initial := testProfile()
	calls := 0
	p := NewProfileProvider(initial, func() (*Profile, error) {
		calls++
		if calls == 1 {
			return nil, assert.AnError
		}
		next := testProfile()
		next.Signals.Thresholds.SpamCutoff = 70
		return next, nil
	}, nil)

	require.Error(t, p.Reload())
	assert.Same(t, initial, p.Current())

	require.NoError(t, p.Reload())
	assert.Equal(t, 70, p.Current().Signals.Thresholds.SpamCutoff)

	assert.Error(t, NewProfileProvider(initial, nil, nil).Reload())
}
