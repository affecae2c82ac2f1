package data

import (
	"context"

	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/infra/feishu"
)

// feishuRepo implements the platform repository over Feishu
type feishuRepo struct {
	client *feishu.Client
}

// NewFeishuRepo creates a new Feishu platform repository
func NewFeishuRepo(client *feishu.Client) repo.PlatformRepo {
	return &feishuRepo{client: client}
}

func (r *feishuRepo) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	return r.client.SendText(ctx, chatID, text)
}

// DeleteMessage ignores chatID; Feishu message IDs are global
func (r *feishuRepo) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return r.client.DeleteMessage(ctx, messageID)
}

func (r *feishuRepo) RemoveMember(ctx context.Context, chatID, userID string) error {
	return r.client.RemoveMember(ctx, chatID, userID)
}
