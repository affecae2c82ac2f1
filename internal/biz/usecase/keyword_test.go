package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordUsecase_Dedup(t *testing.T) {
	r := &mockKeywordRepo{}
	uc := NewKeywordUsecase(r, nil)
	ctx := context.Background()

	assert.True(t, uc.Add(ctx, "Moonshot", "crypto", "admin", "to the moon"))
	assert.False(t, uc.Add(ctx, "  MOONSHOT ", "crypto", "admin", ""))
	assert.Equal(t, []string{"moonshot"}, uc.ActiveKeywords())

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestKeywordUsecase_RejectsEmpty(t *testing.T) {
	uc := NewKeywordUsecase(&mockKeywordRepo{}, nil)
	assert.False(t, uc.Add(context.Background(), "   ", "", "admin", ""))
	assert.False(t, uc.Deactivate(context.Background(), ""))
	assert.Empty(t, uc.ActiveKeywords())
}

func TestKeywordUsecase_DeactivateKeepsHistory(t *testing.T) {
	r := &mockKeywordRepo{}
	uc := NewKeywordUsecase(r, nil)
	ctx := context.Background()

	require.True(t, uc.Add(ctx, "pump", "crypto", "admin", ""))
	assert.True(t, uc.Deactivate(ctx, " PUMP"))
	assert.False(t, uc.Deactivate(ctx, "pump"))
	assert.Empty(t, uc.ActiveKeywords())

	// can be learned again after deactivation
	assert.True(t, uc.Add(ctx, "pump", "crypto", "admin", ""))
	all := uc.AllEntries()
	require.Len(t, all, 2)
	assert.True(t, all[0].Active)
	assert.False(t, all[1].Active)
}

func TestKeywordUsecase_NewestFirst(t *testing.T) {
	uc := NewKeywordUsecase(&mockKeywordRepo{}, nil)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	uc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	uc.Add(ctx, "first", "", "admin", "")
	uc.Add(ctx, "second", "", "admin", "")
	uc.Add(ctx, "third", "", "admin", "")

	all := uc.AllEntries()
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Keyword)
	assert.Equal(t, "first", all[2].Keyword)
	assert.True(t, all[0].AddedAt.After(all[1].AddedAt))
	assert.Equal(t, []string{"third", "second", "first"}, uc.ActiveKeywords())
}

func TestKeywordUsecase_StoreFailureStillLearns(t *testing.T) {
	uc := NewKeywordUsecase(&mockKeywordRepo{fail: true}, nil)
	ctx := context.Background()

	assert.True(t, uc.Add(ctx, "scam", "", "admin", ""))
	assert.False(t, uc.Add(ctx, "scam", "", "admin", ""))
	assert.True(t, uc.Deactivate(ctx, "scam"))
}

func TestKeywordUsecase_Load(t *testing.T) {
	r := &mockKeywordRepo{}
	ctx := context.Background()
	seed := NewKeywordUsecase(r, nil)
	seed.Add(ctx, "alpha", "", "admin", "")
	seed.Add(ctx, "beta", "", "admin", "")
	seed.Deactivate(ctx, "alpha")

	uc := NewKeywordUsecase(r, nil)
	require.NoError(t, uc.Load(ctx))
	assert.Equal(t, []string{"beta"}, uc.ActiveKeywords())
	assert.Len(t, uc.AllEntries(), 2)
	assert.False(t, uc.Add(ctx, "Beta", "", "admin", ""))
}

func TestKeywordUsecase_DuplicateInRepoIsRejected(t *testing.T) {
	r := &mockKeywordRepo{}
	other := NewKeywordUsecase(r, nil)
	uc := NewKeywordUsecase(r, nil)
	ctx := context.Background()

	require.True(t, other.Add(ctx, "presale", "crypto", "cli", ""))
	assert.False(t, uc.Add(ctx, "PRESALE", "crypto", "admin", ""))
	// the rejected add reloads what the repository holds
	assert.Equal(t, []string{"presale"}, uc.ActiveKeywords())
	assert.Len(t, uc.AllEntries(), 1)
}
