package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdateHandler receives every polled update
type UpdateHandler func(context.Context, tgbotapi.Update)

// Client is a thin wrapper over the Bot API. Without a token it runs in dry
// mode: updates never arrive and outgoing calls only log.
type Client struct {
	api         *tgbotapi.BotAPI
	logger      *zap.Logger
	handler     UpdateHandler
	pollTimeout int
	dryRun      bool

	dryID atomic.Int64
}

// NewClient creates a Telegram client
func NewClient(token string, pollTimeout int, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(token) == "" {
		return &Client{logger: logger, pollTimeout: pollTimeout, dryRun: true}, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	return &Client{api: api, logger: logger, pollTimeout: pollTimeout}, nil
}

// OnUpdate sets the update handler
func (c *Client) OnUpdate(handler UpdateHandler) {
	c.handler = handler
}

// DryRun reports whether the client has no token
func (c *Client) DryRun() bool {
	return c.dryRun
}

// Start long-polls for updates until ctx is done
func (c *Client) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("telegram update handler is required")
	}
	if c.dryRun {
		c.logger.Warn("TELEGRAM_TOKEN is empty, running in dry mode")
		<-ctx.Done()
		return nil
	}

	timeout := c.pollTimeout
	if timeout <= 0 {
		timeout = 30
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = timeout
	// chat_member updates are only delivered when asked for explicitly
	updateConfig.AllowedUpdates = []string{"message", "chat_member"}
	updates := c.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handler(ctx, update)
		}
	}
}

// SendText posts a plain text message and returns its ID
func (c *Client) SendText(chatID int64, text string) (int, error) {
	if c.dryRun {
		c.logger.Info("dry run: send message", zap.Int64("chat_id", chatID), zap.String("text", text))
		return int(c.dryID.Add(1)), nil
	}
	msg, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send message failed: %w", err)
	}
	return msg.MessageID, nil
}

// DeleteMessage deletes a message from a chat
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if c.dryRun {
		c.logger.Info("dry run: delete message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
		return nil
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	return nil
}

// KickMember removes a member. The ban is lifted right away so the user
// can join again later.
func (c *Client) KickMember(chatID, userID int64) error {
	if c.dryRun {
		c.logger.Info("dry run: kick member", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))
		return nil
	}
	member := tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID}
	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: member,
		UntilDate:        time.Now().Add(time.Minute).Unix(),
	}
	if _, err := c.api.Request(ban); err != nil {
		return fmt.Errorf("ban member failed: %w", err)
	}
	if _, err := c.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		c.logger.Warn("unban after kick failed", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}
