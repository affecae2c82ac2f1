package repo

import (
	"context"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// WhitelistRepo stores members exempt from moderation
type WhitelistRepo interface {
	Add(ctx context.Context, entry *domain.WhitelistEntry) error
	Remove(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]*domain.WhitelistEntry, error)
	IsWhitelisted(ctx context.Context, userID string) (bool, error)
}

// MemberRepo stores join times
type MemberRepo interface {
	// Get returns domain.ErrNotFound when the member was never observed
	Get(ctx context.Context, chatID, userID string) (*domain.MemberRecord, error)
	// Insert keeps an existing record untouched
	Insert(ctx context.Context, rec *domain.MemberRecord) error
}

// VerifiedRepo stores members that passed the join challenge
type VerifiedRepo interface {
	IsVerified(ctx context.Context, chatID, userID string) (bool, error)
	MarkVerified(ctx context.Context, rec *domain.VerifiedRecord) error
}

// KeywordRepo stores learned keywords
type KeywordRepo interface {
	Insert(ctx context.Context, kw *domain.LearnedKeyword) (int64, error)
	Deactivate(ctx context.Context, keyword string) (bool, error)
	// List returns every entry, newest first
	List(ctx context.Context) ([]*domain.LearnedKeyword, error)
}
