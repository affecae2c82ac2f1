package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

type memberRepo struct {
	db *sql.DB
}

// NewMemberRepo creates the member join-time repository
func NewMemberRepo(db *sql.DB) (repo.MemberRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS members (
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			joined_at INTEGER NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create members table: %w", err)
	}
	return &memberRepo{db: db}, nil
}

func (r *memberRepo) Get(ctx context.Context, chatID, userID string) (*domain.MemberRecord, error) {
	var joinedAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT joined_at FROM members WHERE chat_id = ? AND user_id = ?
	`, chatID, userID).Scan(&joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	return &domain.MemberRecord{ChatID: chatID, UserID: userID, JoinedAt: time.Unix(joinedAt, 0)}, nil
}

func (r *memberRepo) Insert(ctx context.Context, rec *domain.MemberRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO members (chat_id, user_id, joined_at) VALUES (?, ?, ?)
	`, rec.ChatID, rec.UserID, rec.JoinedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

type verifiedRepo struct {
	db *sql.DB
}

// NewVerifiedRepo creates the verified-member repository
func NewVerifiedRepo(db *sql.DB) (repo.VerifiedRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS verified_members (
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			verified_at INTEGER NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create verified_members table: %w", err)
	}
	return &verifiedRepo{db: db}, nil
}

func (r *verifiedRepo) IsVerified(ctx context.Context, chatID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verified_members WHERE chat_id = ? AND user_id = ?
	`, chatID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check verified member: %w", err)
	}
	return count > 0, nil
}

func (r *verifiedRepo) MarkVerified(ctx context.Context, rec *domain.VerifiedRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO verified_members (chat_id, user_id, username, verified_at)
		VALUES (?, ?, ?, ?)
	`, rec.ChatID, rec.UserID, rec.Username, rec.VerifiedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to mark member verified: %w", err)
	}
	return nil
}
