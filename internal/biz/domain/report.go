package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write would break a uniqueness rule
var ErrDuplicate = errors.New("duplicate")

// MessageLog is one observed chat message
type MessageLog struct {
	ChatID    string
	UserID    string
	Username  string
	MessageID string
	Text      string
	HasMedia  bool
	CreatedAt time.Time
}

// SpamReport records a deleted spam message
type SpamReport struct {
	ID        string
	ChatID    string
	UserID    string
	Username  string
	MessageID string
	Text      string
	Score     int
	Reasons   []string
	Source    string // "rules" or "classifier"
	CreatedAt time.Time
}

// VerificationEvent records how a join challenge ended
type VerificationEvent struct {
	ChatID    string
	UserID    string
	Username  string
	Outcome   VerificationOutcome
	Attempts  int
	CreatedAt time.Time
}

// MediaBlock records a media message deleted by the new-member gate
type MediaBlock struct {
	ChatID    string
	UserID    string
	Username  string
	MessageID string
	CreatedAt time.Time
}

// DailyStats aggregates the moderation counters of one day
type DailyStats struct {
	Date          string  `json:"date"`
	MessagesTotal int     `json:"messages_total"`
	SpamBlocked   int     `json:"spam_blocked"`
	CaptchaKicks  int     `json:"captcha_kicks"`
	MediaBlocks   int     `json:"media_blocks"`
	Verified      int     `json:"verified"`
	SpamRate      float64 `json:"spam_rate"`
}
