package usecase

import (
	"time"

	"github.com/devricklin/chatguard/internal/biz/domain"
)

// ActionSink receives platform actions. Calls return immediately and
// delivery is best effort.
type ActionSink interface {
	DeleteMessage(chatID, messageID string)
	// SendMessage posts text; a positive ttl deletes the message again after
	// ttl. onSent, when set, receives the new message ID after delivery.
	SendMessage(chatID, text string, ttl time.Duration, onSent func(messageID string))
	RemoveMember(chatID, userID, reason string)
}

// Recorder receives moderation events for logs, counters and metrics
type Recorder interface {
	Message(msg domain.MessageLog)
	Spam(report domain.SpamReport)
	Verification(ev domain.VerificationEvent)
	MediaBlock(block domain.MediaBlock)
}

type nopRecorder struct{}

func (nopRecorder) Message(domain.MessageLog) {}
func (nopRecorder) Spam(domain.SpamReport) {}
func (nopRecorder) Verification(domain.VerificationEvent) {}
func (nopRecorder) MediaBlock(domain.MediaBlock) {}

// NopRecorder discards every event
func NopRecorder() Recorder {
	return nopRecorder{}
}
