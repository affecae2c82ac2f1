package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/domain"
	"github.com/devricklin/chatguard/internal/infra/feishu"
)

// FeishuServer feeds Feishu group events to the moderator
type FeishuServer struct {
	client    *feishu.Client
	moderator Moderator
	seen      *seenSet
	logger    *zap.Logger
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(client *feishu.Client, moderator Moderator, logger *zap.Logger) *FeishuServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeishuServer{
		client:    client,
		moderator: moderator,
		seen:      newSeenSet(),
		logger:    logger.Named("feishu"),
	}
}

// Start connects and blocks until ctx is done
func (s *FeishuServer) Start(ctx context.Context) error {
	s.client.OnMessage(func(msg *feishu.Message) { s.handleMessage(ctx, msg) })
	s.client.OnMemberJoined(func(join *feishu.MemberJoin) { s.handleJoin(ctx, join) })
	return s.client.Start(ctx)
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.client.Stop()
}

func (s *FeishuServer) handleMessage(ctx context.Context, msg *feishu.Message) {
	// Message deduplication: Feishu redelivers until the event is ACKed
	if !s.seen.firstTime("msg:" + msg.MsgID) {
		s.logger.Debug("duplicate message ignored", zap.String("msg_id", msg.MsgID))
		return
	}
	ev := EventFromFeishuMessage(msg, time.Now())
	if ev == nil {
		return
	}
	s.dispatch(ctx, ev)
}

func (s *FeishuServer) handleJoin(ctx context.Context, join *feishu.MemberJoin) {
	if !s.seen.firstTime("join:" + join.EventID) {
		return
	}
	s.dispatch(ctx, &domain.Event{
		Type:       domain.EventMemberJoined,
		ChatID:     join.ChatID,
		UserID:     join.UserID,
		Username:   join.Name,
		ReceivedAt: time.Now(),
	})
}

func (s *FeishuServer) dispatch(ctx context.Context, ev *domain.Event) {
	decision := s.moderator.HandleEvent(ctx, ev)
	s.logger.Debug("event handled",
		zap.String("type", string(ev.Type)),
		zap.String("chat_id", ev.ChatID),
		zap.String("user_id", ev.UserID),
		zap.String("decision", string(decision)))
}

// EventFromFeishuMessage converts a group message; direct chats yield nil
func EventFromFeishuMessage(msg *feishu.Message, now time.Time) *domain.Event {
	if msg == nil || msg.ChatType == "p2p" {
		return nil
	}
	return &domain.Event{
		Type:       domain.EventMessage,
		ChatID:     msg.ChatID,
		UserID:     msg.SenderID,
		MessageID:  msg.MsgID,
		Text:       msg.Content,
		HasMedia:   msg.HasMedia,
		IsBot:      msg.SenderType == "app",
		ReceivedAt: now,
	}
}
