package server

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/infra/telegram"
)

// TelegramServer feeds polled Telegram updates to the moderator
type TelegramServer struct {
	client    *telegram.Client
	moderator Moderator
	seen      *seenSet
	logger    *zap.Logger
}

// NewTelegramServer creates a Telegram server
func NewTelegramServer(client *telegram.Client, moderator Moderator, logger *zap.Logger) *TelegramServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramServer{
		client:    client,
		moderator: moderator,
		seen:      newSeenSet(),
		logger:    logger.Named("telegram"),
	}
}

// Start polls until ctx is done
func (s *TelegramServer) Start(ctx context.Context) error {
	s.client.OnUpdate(s.handleUpdate)
	return s.client.Start(ctx)
}

func (s *TelegramServer) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if !s.seen.firstTime(strconv.Itoa(update.UpdateID)) {
		s.logger.Debug("duplicate update ignored", zap.Int("update_id", update.UpdateID))
		return
	}
	for _, ev := range EventsFromUpdate(update, time.Now()) {
		decision := s.moderator.HandleEvent(ctx, ev)
		s.logger.Debug("event handled",
			zap.String("type", string(ev.Type)),
			zap.String("chat_id", ev.ChatID),
			zap.String("user_id", ev.UserID),
			zap.String("decision", string(decision)))
	}
}

// EventsFromUpdate converts an update into moderation events. Service
// messages announcing new members become join events.
func EventsFromUpdate(update tgbotapi.Update, now time.Time) []*domain.Event {
	if cm := update.ChatMember; cm != nil {
		if ev := joinFromChatMember(cm, now); ev != nil {
			return []*domain.Event{ev}
		}
		return nil
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}
	if msg.Chat.IsPrivate() {
		return nil
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	if len(msg.NewChatMembers) > 0 {
		events := make([]*domain.Event, 0, len(msg.NewChatMembers))
		for _, u := range msg.NewChatMembers {
			events = append(events, &domain.Event{
				Type:       domain.EventMemberJoined,
				ChatID:     chatID,
				UserID:     strconv.FormatInt(u.ID, 10),
				Username:   u.UserName,
				IsBot:      u.IsBot,
				ReceivedAt: now,
			})
		}
		return events
	}
	if msg.LeftChatMember != nil {
		return nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	ev := &domain.Event{
		Type:       domain.EventMessage,
		ChatID:     chatID,
		UserID:     strconv.FormatInt(msg.From.ID, 10),
		Username:   msg.From.UserName,
		MessageID:  strconv.Itoa(msg.MessageID),
		Text:       text,
		HasMedia:   hasMedia(msg),
		IsBot:      msg.From.IsBot,
		ReceivedAt: now,
	}
	if reply := msg.ReplyToMessage; reply != nil {
		if reply.From != nil {
			ev.ReplyToUserID = strconv.FormatInt(reply.From.ID, 10)
			ev.ReplyToUsername = reply.From.UserName
		}
		ev.ReplyToText = reply.Text
		if ev.ReplyToText == "" {
			ev.ReplyToText = reply.Caption
		}
	}
	return []*domain.Event{ev}
}

func hasMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Video != nil || msg.Document != nil || msg.Animation != nil
}

// joinFromChatMember reports a transition from outside the chat to inside it
func joinFromChatMember(cm *tgbotapi.ChatMemberUpdated, now time.Time) *domain.Event {
	user := cm.NewChatMember.User
	if user == nil || cm.Chat.IsPrivate() {
		return nil
	}
	if !isInside(cm.NewChatMember.Status) || isInside(cm.OldChatMember.Status) {
		return nil
	}
	return &domain.Event{
		Type:       domain.EventMemberJoined,
		ChatID:     strconv.FormatInt(cm.Chat.ID, 10),
		UserID:     strconv.FormatInt(user.ID, 10),
		Username:   user.UserName,
		IsBot:      user.IsBot,
		ReceivedAt: now,
	}
}

func isInside(status string) bool {
	switch status {
	case "member", "restricted", "administrator", "creator":
		return true
	default:
		return false
	}
}
