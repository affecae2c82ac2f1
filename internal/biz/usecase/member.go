package usecase

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

const defaultMemberCacheSize = 10000

// MemberUsecase tracks join times through a cache in front of the repository
type MemberUsecase struct {
	repo   repo.MemberRepo
	cache  *lru.Cache[domain.MemberKey, domain.MemberRecord]
	bg     *Background
	logger *zap.Logger
}

// NewMemberUsecase creates a member usecase
func NewMemberUsecase(r repo.MemberRepo, bg *Background, logger *zap.Logger) *MemberUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[domain.MemberKey, domain.MemberRecord](defaultMemberCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &MemberUsecase{repo: r, cache: cache, bg: bg, logger: logger.Named("members")}
}

// Observe records that a member joined at joinedAt unless a record exists
func (u *MemberUsecase) Observe(ctx context.Context, key domain.MemberKey, joinedAt time.Time) domain.MemberRecord {
	if rec := u.Get(ctx, key); rec != nil {
		return *rec
	}

	rec := domain.MemberRecord{ChatID: key.ChatID, UserID: key.UserID, JoinedAt: joinedAt}
	u.cache.Add(key, rec)
	u.bg.Go("member.insert", func(ctx context.Context) error {
		return u.repo.Insert(ctx, &rec)
	})
	return rec
}

// Get returns the member record, or nil when the member is unknown.
// Repository failures are logged and read as unknown.
func (u *MemberUsecase) Get(ctx context.Context, key domain.MemberKey) *domain.MemberRecord {
	if rec, ok := u.cache.Get(key); ok {
		return &rec
	}

	rec, err := u.repo.Get(ctx, key.ChatID, key.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.logger.Warn("member lookup failed, treating member as new",
				zap.String("chat_id", key.ChatID), zap.String("user_id", key.UserID), zap.Error(err))
		}
		return nil
	}
	u.cache.Add(key, *rec)
	return rec
}
