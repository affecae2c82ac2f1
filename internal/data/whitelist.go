package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

type whitelistRepo struct {
	db *sql.DB
}

// NewWhitelistRepo creates the whitelist repository
func NewWhitelistRepo(db *sql.DB) (repo.WhitelistRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS whitelist (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			added_by TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create whitelist table: %w", err)
	}
	return &whitelistRepo{db: db}, nil
}

func (r *whitelistRepo) Add(ctx context.Context, entry *domain.WhitelistEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO whitelist (user_id, username, added_by, created_at)
		VALUES (?, ?, ?, ?)
	`, entry.UserID, entry.Username, entry.AddedBy, entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to add to whitelist: %w", err)
	}
	return nil
}

func (r *whitelistRepo) Remove(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whitelist WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove from whitelist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *whitelistRepo) List(ctx context.Context) ([]*domain.WhitelistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, username, added_by, created_at
		FROM whitelist
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query whitelist: %w", err)
	}
	defer rows.Close()

	var entries []*domain.WhitelistEntry
	for rows.Next() {
		var e domain.WhitelistEntry
		var createdAt int64
		if err := rows.Scan(&e.UserID, &e.Username, &e.AddedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan whitelist entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *whitelistRepo) IsWhitelisted(ctx context.Context, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM whitelist WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check whitelist: %w", err)
	}
	return count > 0, nil
}
