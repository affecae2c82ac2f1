package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

type keywordRepo struct {
	db *sql.DB
}

// NewKeywordRepo creates the learned keyword repository
func NewKeywordRepo(db *sql.DB) (repo.KeywordRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS learned_keywords (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			keyword TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			added_by TEXT NOT NULL DEFAULT '',
			added_at INTEGER NOT NULL,
			source_excerpt TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create learned_keywords table: %w", err)
	}

	// at most one active row per keyword
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_learned_keywords_active
		ON learned_keywords(keyword) WHERE active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &keywordRepo{db: db}, nil
}

func (r *keywordRepo) Insert(ctx context.Context, kw *domain.LearnedKeyword) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO learned_keywords (keyword, category, added_by, added_at, source_excerpt, active)
		VALUES (?, ?, ?, ?, ?, 1)
	`, kw.Keyword, kw.Category, kw.AddedBy, kw.AddedAt.Unix(), kw.SourceExcerpt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("keyword %q is already active: %w", kw.Keyword, domain.ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert keyword: %w", err)
	}
	return res.LastInsertId()
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (r *keywordRepo) Deactivate(ctx context.Context, keyword string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE learned_keywords SET active = 0 WHERE keyword = ? AND active = 1
	`, keyword)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate keyword: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *keywordRepo) List(ctx context.Context) ([]*domain.LearnedKeyword, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, keyword, category, added_by, added_at, source_excerpt, active
		FROM learned_keywords
		ORDER BY added_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()

	var result []*domain.LearnedKeyword
	for rows.Next() {
		var kw domain.LearnedKeyword
		var addedAt int64
		var active int
		if err := rows.Scan(&kw.ID, &kw.Keyword, &kw.Category, &kw.AddedBy, &addedAt, &kw.SourceExcerpt, &active); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		kw.AddedAt = time.Unix(addedAt, 0)
		kw.Active = active == 1
		result = append(result, &kw)
	}
	return result, rows.Err()
}
