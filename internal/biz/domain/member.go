package domain

import (
	"fmt"
	"time"
)

// MemberKey identifies a member inside one chat
type MemberKey struct {
	ChatID string
	UserID string
}

func (k MemberKey) String() string {
	return fmt.Sprintf("%s/%s", k.ChatID, k.UserID)
}

// MemberRecord remembers when a member joined a chat.
// A missing record means the member is unknown and is treated as new.
type MemberRecord struct {
	ChatID   string
	UserID   string
	JoinedAt time.Time
}

// Age returns how long the member has been in the chat at now
func (m *MemberRecord) Age(now time.Time) time.Duration {
	return now.Sub(m.JoinedAt)
}

// VerifiedRecord marks a member that passed the join challenge
type VerifiedRecord struct {
	ChatID     string
	UserID     string
	Username   string
	VerifiedAt time.Time
}

// WhitelistEntry represents a member exempt from all moderation
type WhitelistEntry struct {
	UserID    string
	Username  string
	AddedBy   string
	CreatedAt time.Time
}

// DisplayName formats a user for notices
func DisplayName(userID, username string) string {
	if username != "" {
		return "@" + username
	}
	return "user " + userID
}
