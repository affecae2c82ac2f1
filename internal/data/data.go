package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devricklin/chatguard/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Repositories contains all SQLite-backed repositories
type Repositories struct {
	DB        *sql.DB
	Whitelist repo.WhitelistRepo
	Member    repo.MemberRepo
	Verified  repo.VerifiedRepo
	Keyword   repo.KeywordRepo
	Report    repo.ReportRepo
}

// OpenDB opens the moderation database, creating its directory if needed
func OpenDB(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return db, nil
}

// NewRepositories opens dbPath and creates all repositories on it
func NewRepositories(dbPath string) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{DB: db}
	if repos.Whitelist, err = NewWhitelistRepo(db); err != nil {
		db.Close()
		return nil, err
	}
	if repos.Member, err = NewMemberRepo(db); err != nil {
		db.Close()
		return nil, err
	}
	if repos.Verified, err = NewVerifiedRepo(db); err != nil {
		db.Close()
		return nil, err
	}
	if repos.Keyword, err = NewKeywordRepo(db); err != nil {
		db.Close()
		return nil, err
	}
	if repos.Report, err = NewReportRepo(db); err != nil {
		db.Close()
		return nil, err
	}
	return repos, nil
}

// Close closes the database
func (r *Repositories) Close() error {
	return r.DB.Close()
}
