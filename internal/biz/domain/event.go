package domain

import "time"

// EventType distinguishes inbound platform events
type EventType string

const (
	EventMessage      EventType = "message"
	EventMemberJoined EventType = "member_joined"
)

// Event is a platform-neutral inbound event
type Event struct {
	Type      EventType
	ChatID    string
	UserID    string
	Username  string
	MessageID string
	Text      string // message text or media caption
	HasMedia  bool
	IsBot     bool

	// Reply context, used by admin commands
	ReplyToUserID   string
	ReplyToUsername string
	ReplyToText     string

	ReceivedAt time.Time
}

// Key returns the member key of the event author
func (e *Event) Key() MemberKey {
	return MemberKey{ChatID: e.ChatID, UserID: e.UserID}
}
