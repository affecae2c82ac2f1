package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/biz/repo"
)

type reportRepo struct {
	db *sql.DB
}

// NewReportRepo creates the moderation log repository
func NewReportRepo(db *sql.DB) (repo.ReportRepo, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS message_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			message_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			has_media INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_message_log_created ON message_log(created_at)`,
		`CREATE TABLE IF NOT EXISTS spam_reports (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			message_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL,
			reasons TEXT NOT NULL DEFAULT '[]',
			source TEXT NOT NULL DEFAULT 'rules',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spam_reports_created ON spam_reports(created_at)`,
		`CREATE TABLE IF NOT EXISTS verification_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS media_blocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			message_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create report tables: %w", err)
		}
	}
	return &reportRepo{db: db}, nil
}

func (r *reportRepo) LogMessage(ctx context.Context, msg *domain.MessageLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_log (chat_id, user_id, username, message_id, text, has_media, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ChatID, msg.UserID, msg.Username, msg.MessageID, msg.Text, boolToInt(msg.HasMedia), msg.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

func (r *reportRepo) LogSpam(ctx context.Context, report *domain.SpamReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	reasons, err := json.Marshal(report.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO spam_reports (id, chat_id, user_id, username, message_id, text, score, reasons, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.ChatID, report.UserID, report.Username, report.MessageID, report.Text,
		report.Score, string(reasons), report.Source, report.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to log spam report: %w", err)
	}
	return nil
}

func (r *reportRepo) LogVerification(ctx context.Context, ev *domain.VerificationEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_events (chat_id, user_id, username, outcome, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ChatID, ev.UserID, ev.Username, string(ev.Outcome), ev.Attempts, ev.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to log verification: %w", err)
	}
	return nil
}

func (r *reportRepo) LogMediaBlock(ctx context.Context, block *domain.MediaBlock) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_blocks (chat_id, user_id, username, message_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, block.ChatID, block.UserID, block.Username, block.MessageID, block.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to log media block: %w", err)
	}
	return nil
}

func (r *reportRepo) RecentSpam(ctx context.Context, limit int) ([]*domain.SpamReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, username, message_id, text, score, reasons, source, created_at
		FROM spam_reports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spam reports: %w", err)
	}
	defer rows.Close()

	var result []*domain.SpamReport
	for rows.Next() {
		var rep domain.SpamReport
		var reasons string
		var createdAt int64
		if err := rows.Scan(&rep.ID, &rep.ChatID, &rep.UserID, &rep.Username, &rep.MessageID,
			&rep.Text, &rep.Score, &reasons, &rep.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan spam report: %w", err)
		}
		_ = json.Unmarshal([]byte(reasons), &rep.Reasons)
		rep.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, &rep)
	}
	return result, rows.Err()
}

func (r *reportRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_log WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune message log: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
