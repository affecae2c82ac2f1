package repo

import "context"

// PlatformRepo is the messaging platform the moderator acts on
type PlatformRepo interface {
	// SendMessage posts text to a chat and returns the new message ID
	SendMessage(ctx context.Context, chatID, text string) (string, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	// RemoveMember kicks a member while still allowing a later rejoin
	RemoveMember(ctx context.Context, chatID, userID string) error
}
