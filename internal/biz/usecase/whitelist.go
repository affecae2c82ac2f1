package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

// WhitelistUsecase manages members exempt from moderation
type WhitelistUsecase struct {
	repo   repo.WhitelistRepo
	logger *zap.Logger
}

// NewWhitelistUsecase creates a whitelist usecase
func NewWhitelistUsecase(r repo.WhitelistRepo, logger *zap.Logger) *WhitelistUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhitelistUsecase{repo: r, logger: logger.Named("whitelist")}
}

// Add whitelists a user, replacing any earlier entry for the same user
func (u *WhitelistUsecase) Add(ctx context.Context, userID, username, addedBy string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	entry := &domain.WhitelistEntry{
		UserID:    userID,
		Username:  strings.TrimPrefix(strings.TrimSpace(username), "@"),
		AddedBy:   addedBy,
		CreatedAt: time.Now(),
	}
	if err := u.repo.Add(ctx, entry); err != nil {
		return err
	}
	u.logger.Info("user whitelisted", zap.String("user_id", userID), zap.String("added_by", addedBy))
	return nil
}

// Remove deletes a user from the whitelist and reports whether it was listed
func (u *WhitelistUsecase) Remove(ctx context.Context, userID string) (bool, error) {
	removed, err := u.repo.Remove(ctx, strings.TrimSpace(userID))
	if err != nil {
		return false, err
	}
	if removed {
		u.logger.Info("user removed from whitelist", zap.String("user_id", userID))
	}
	return removed, nil
}

// List returns all whitelist entries
func (u *WhitelistUsecase) List(ctx context.Context) ([]*domain.WhitelistEntry, error) {
	return u.repo.List(ctx)
}

// IsWhitelisted reports whether a user is whitelisted. Lookup failures
// are logged and read as not whitelisted.
func (u *WhitelistUsecase) IsWhitelisted(ctx context.Context, userID string) bool {
	ok, err := u.repo.IsWhitelisted(ctx, userID)
	if err != nil {
		u.logger.Warn("whitelist lookup failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}
