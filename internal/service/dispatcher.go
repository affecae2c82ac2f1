package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/biz/usecase"
)

// Dispatcher executes platform actions in the background so the moderation
// path never waits on the network
type Dispatcher struct {
	platform repo.PlatformRepo
	bg       *usecase.Background
	clock    usecase.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	closed  bool
	notices map[*notice]struct{}
}

type notice struct {
	chatID    string
	messageID string
	timer     usecase.Timer
}

// NewDispatcher creates a dispatcher; clock may be nil
func NewDispatcher(platform repo.PlatformRepo, bg *usecase.Background, clock usecase.Clock, logger *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = usecase.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		platform: platform,
		bg:       bg,
		clock:    clock,
		logger:   logger.Named("dispatcher"),
		notices:  make(map[*notice]struct{}),
	}
}

var _ usecase.ActionSink = (*Dispatcher)(nil)

func (d *Dispatcher) DeleteMessage(chatID, messageID string) {
	if messageID == "" {
		return
	}
	d.bg.Go("platform.delete", func(ctx context.Context) error {
		return observe("delete", d.platform.DeleteMessage(ctx, chatID, messageID))
	})
}

func (d *Dispatcher) SendMessage(chatID, text string, ttl time.Duration, onSent func(messageID string)) {
	d.bg.Go("platform.send", func(ctx context.Context) error {
		id, err := d.platform.SendMessage(ctx, chatID, text)
		if observe("send", err) != nil {
			return err
		}
		if onSent != nil {
			onSent(id)
		}
		if ttl > 0 && id != "" {
			d.expireAfter(chatID, id, ttl)
		}
		return nil
	})
}

func (d *Dispatcher) RemoveMember(chatID, userID, reason string) {
	d.logger.Info("removing member", zap.String("chat_id", chatID), zap.String("user_id", userID), zap.String("reason", reason))
	d.bg.Go("platform.remove", func(ctx context.Context) error {
		return observe("remove", d.platform.RemoveMember(ctx, chatID, userID))
	})
}

// Close deletes every notice that is still waiting for its TTL
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	pending := d.notices
	d.notices = make(map[*notice]struct{})
	d.mu.Unlock()

	for n := range pending {
		if n.timer.Stop() {
			d.DeleteMessage(n.chatID, n.messageID)
		}
	}
}

func (d *Dispatcher) expireAfter(chatID, messageID string, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.DeleteMessage(chatID, messageID)
		return
	}
	n := &notice{chatID: chatID, messageID: messageID}
	n.timer = d.clock.AfterFunc(ttl, func() {
		d.mu.Lock()
		delete(d.notices, n)
		d.mu.Unlock()
		d.DeleteMessage(chatID, messageID)
	})
	d.notices[n] = struct{}{}
}

func observe(action string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
	}
	actionCount.WithLabelValues(action, result).Inc()
	return err
}
