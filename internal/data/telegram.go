package data

import (
	"context"
	"fmt"
	"strconv"

	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/infra/telegram"
)

// telegramRepo implements the platform repository over the Bot API.
// Domain IDs are the decimal form of Telegram's numeric IDs.
type telegramRepo struct {
	client *telegram.Client
}

// NewTelegramRepo creates a new Telegram platform repository
func NewTelegramRepo(client *telegram.Client) repo.PlatformRepo {
	return &telegramRepo{client: client}
}

func (r *telegramRepo) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	chat, err := parseID("chat", chatID)
	if err != nil {
		return "", err
	}
	id, err := r.client.SendText(chat, text)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(id), nil
}

func (r *telegramRepo) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	chat, err := parseID("chat", chatID)
	if err != nil {
		return err
	}
	msg, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", messageID, err)
	}
	return r.client.DeleteMessage(chat, msg)
}

func (r *telegramRepo) RemoveMember(ctx context.Context, chatID, userID string) error {
	chat, err := parseID("chat", chatID)
	if err != nil {
		return err
	}
	user, err := parseID("user", userID)
	if err != nil {
		return err
	}
	return r.client.KickMember(chat, user)
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return id, nil
}
