package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

// KeywordUsecase is the store of learned keywords. Deduplication happens
// in memory and again in the repository, which other processes may write
// to. Other repository failures only cost durability.
type KeywordUsecase struct {
	repo   repo.KeywordRepo
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	entries []*domain.LearnedKeyword // newest first
}

// NewKeywordUsecase creates a keyword usecase
func NewKeywordUsecase(r repo.KeywordRepo, logger *zap.Logger) *KeywordUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordUsecase{repo: r, now: time.Now, logger: logger.Named("keywords")}
}

// Load replaces the in-memory entries with the repository contents
func (u *KeywordUsecase) Load(ctx context.Context) error {
	list, err := u.repo.List(ctx)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.entries = list
	u.mu.Unlock()
	u.logger.Info("learned keywords loaded", zap.Int("active", len(u.ActiveKeywords())), zap.Int("total", len(list)))
	return nil
}

// Add learns a keyword. It returns false for an empty keyword or one that
// is already active.
func (u *KeywordUsecase) Add(ctx context.Context, keyword, category, addedBy, sourceExcerpt string) bool {
	keyword = domain.NormalizeKeyword(keyword)
	if keyword == "" {
		return false
	}

	u.mu.Lock()
	if u.activeLocked(keyword) != nil {
		u.mu.Unlock()
		return false
	}
	entry := &domain.LearnedKeyword{
		Keyword:       keyword,
		Category:      category,
		AddedBy:       addedBy,
		AddedAt:       u.now(),
		SourceExcerpt: sourceExcerpt,
		Active:        true,
	}
	u.entries = append([]*domain.LearnedKeyword{entry}, u.entries...)
	rec := *entry
	u.mu.Unlock()

	id, err := u.repo.Insert(ctx, &rec)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		// learned elsewhere since the last load
		u.mu.Lock()
		u.dropLocked(entry)
		u.mu.Unlock()
		if err := u.Load(ctx); err != nil {
			u.logger.Warn("failed to reload learned keywords", zap.Error(err))
		}
		return false
	case err != nil:
		u.logger.Warn("failed to persist learned keyword", zap.String("keyword", keyword), zap.Error(err))
	default:
		u.mu.Lock()
		entry.ID = id
		u.mu.Unlock()
	}
	u.logger.Info("keyword learned", zap.String("keyword", keyword), zap.String("category", category), zap.String("added_by", addedBy))
	return true
}

// Deactivate retires the active entry for keyword. It returns false if no
// active entry matches.
func (u *KeywordUsecase) Deactivate(ctx context.Context, keyword string) bool {
	keyword = domain.NormalizeKeyword(keyword)
	if keyword == "" {
		return false
	}

	u.mu.Lock()
	entry := u.activeLocked(keyword)
	if entry == nil {
		u.mu.Unlock()
		return false
	}
	entry.Active = false
	u.mu.Unlock()

	if _, err := u.repo.Deactivate(ctx, keyword); err != nil {
		u.logger.Warn("failed to persist keyword deactivation", zap.String("keyword", keyword), zap.Error(err))
	}
	u.logger.Info("keyword deactivated", zap.String("keyword", keyword))
	return true
}

// ActiveKeywords returns the active keywords, newest first
func (u *KeywordUsecase) ActiveKeywords() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var out []string
	for _, e := range u.entries {
		if e.Active {
			out = append(out, e.Keyword)
		}
	}
	return out
}

// AllEntries returns every entry including deactivated ones, newest first
func (u *KeywordUsecase) AllEntries() []domain.LearnedKeyword {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]domain.LearnedKeyword, len(u.entries))
	for i, e := range u.entries {
		out[i] = *e
	}
	return out
}

func (u *KeywordUsecase) activeLocked(keyword string) *domain.LearnedKeyword {
	for _, e := range u.entries {
		if e.Active && e.Keyword == keyword {
			return e
		}
	}
	return nil
}

func (u *KeywordUsecase) dropLocked(entry *domain.LearnedKeyword) {
	for i, e := range u.entries {
		if e == entry {
			u.entries = append(u.entries[:i:i], u.entries[i+1:]...)
			return
		}
	}
}
