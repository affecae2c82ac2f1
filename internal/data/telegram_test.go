package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devricklin/chatguard/internal/infra/telegram"
)

func TestTelegramRepo_DryRun(t *testing.T) {
	client, err := telegram.NewClient("", 0, nil)
	require.NoError(t, err)
	r := NewTelegramRepo(client)
	ctx := context.Background()

	id, err := r.SendMessage(ctx, "-100123", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	assert.NoError(t, r.DeleteMessage(ctx, "-100123", id))
	assert.NoError(t, r.RemoveMember(ctx, "-100123", "42"))
}

func TestTelegramRepo_InvalidIDs(t *testing.T) {
	client, err := telegram.NewClient("", 0, nil)
	require.NoError(t, err)
	r := NewTelegramRepo(client)
	ctx := context.Background()

	_, err = r.SendMessage(ctx, "oc_feishu_chat", "hello")
	assert.Error(t, err)
	assert.Error(t, r.DeleteMessage(ctx, "1", "om_x"))
	assert.Error(t, r.RemoveMember(ctx, "1", "ou_x"))
}
