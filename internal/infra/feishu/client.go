package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, post, image, media, file, sticker, audio
	ChatType   string // p2p, group
	Content    string // text content extracted from text and post messages
	HasMedia   bool
	SenderID   string // open_id
	SenderType string // user, app
	CreateTime int64  // milliseconds
}

// MemberJoin is one user added to a group
type MemberJoin struct {
	EventID string
	ChatID  string
	UserID  string // open_id
	Name    string
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// JoinHandler is the callback for users added to a group
type JoinHandler func(join *MemberJoin)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	onJoin    JoinHandler
	logger    *zap.Logger
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    logger,
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnMemberJoined sets the join handler
func (c *Client) OnMemberJoined(handler JoinHandler) {
	c.onJoin = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Handlers must return quickly so the SDK can ACK; Feishu retries on timeout
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			if msg := ParseMessageEvent(event); msg != nil && c.onMessage != nil {
				go c.onMessage(msg)
			}
			return nil
		}).
		OnP2ChatMemberUserAddedV1(func(_ context.Context, event *larkim.P2ChatMemberUserAddedV1) error {
			if c.onJoin == nil {
				return nil
			}
			for _, join := range ParseJoinEvent(event) {
				go c.onJoin(join)
			}
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting feishu websocket connection")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// ParseMessageEvent converts a receive event. Messages sent by apps,
// including this bot, yield nil.
func ParseMessageEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	rawMsg := event.Event.Message
	sender := event.Event.Sender
	if sender != nil && deref(sender.SenderType) == "app" {
		return nil
	}

	msg := &Message{
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		MsgType:  deref(rawMsg.MessageType),
		ChatType: deref(rawMsg.ChatType),
	}
	if ts, err := strconv.ParseInt(deref(rawMsg.CreateTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}
	if sender != nil {
		msg.SenderType = deref(sender.SenderType)
		if sender.SenderId != nil {
			msg.SenderID = deref(sender.SenderId.OpenId)
		}
	}

	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention != nil && mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content := deref(rawMsg.Content)
	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content, mentionMap)
	case "post":
		text, images := parsePostContent(content, mentionMap)
		msg.Content = text
		msg.HasMedia = images > 0
	case "image", "media", "file", "sticker", "audio":
		msg.HasMedia = true
	default:
		return nil
	}
	return msg
}

// ParseJoinEvent converts a user-added event into one entry per user
func ParseJoinEvent(event *larkim.P2ChatMemberUserAddedV1) []*MemberJoin {
	if event == nil || event.Event == nil {
		return nil
	}
	eventID := eventIDOf(event.EventV2Base)
	chatID := deref(event.Event.ChatId)

	var joins []*MemberJoin
	for i, u := range event.Event.Users {
		if u == nil || u.UserId == nil || u.UserId.OpenId == nil {
			continue
		}
		joins = append(joins, &MemberJoin{
			EventID: fmt.Sprintf("%s#%d", eventID, i),
			ChatID:  chatID,
			UserID:  *u.UserId.OpenId,
			Name:    deref(u.Name),
		})
	}
	return joins
}

func eventIDOf(base *larkevent.EventV2Base) string {
	if base == nil || base.Header == nil {
		return ""
	}
	return base.Header.EventID
}

// parseTextContent extracts text from a text message and replaces mention
// placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent extracts the text of a rich text message and counts its
// embedded images and videos
func parsePostContent(content string, mentionMap map[string]string) (string, int) {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag      string `json:"tag"`
			Text     string `json:"text,omitempty"`
			Href     string `json:"href,omitempty"`
			UserName string `json:"user_name,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", 0
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	media := 0
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				parts = append(parts, elem.Text)
			case "a":
				// the link target matters to the scorer, not just its label
				parts = append(parts, elem.Text, " ", elem.Href)
			case "at":
				if elem.UserName != "" {
					parts = append(parts, "@"+elem.UserName)
				}
			case "img", "media":
				media++
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap), media
}

func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message to a chat and returns its message ID
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send message error: %s", resp.Msg)
	}
	if resp.Data == nil {
		return "", nil
	}
	return deref(resp.Data.MessageId), nil
}

// DeleteMessage recalls a message. The bot must be a group admin to recall
// messages of other members.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	req := larkim.NewDeleteMessageReqBuilder().
		MessageId(messageID).
		Build()

	resp, err := c.larkCli.Im.Message.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("delete message error: %s", resp.Msg)
	}
	return nil
}

// RemoveMember removes a user from a group by open_id
func (c *Client) RemoveMember(ctx context.Context, chatID, openID string) error {
	req := larkim.NewDeleteChatMembersReqBuilder().
		ChatId(chatID).
		MemberIdType("open_id").
		Body(larkim.NewDeleteChatMembersReqBodyBuilder().
			IdList([]string{openID}).
			Build()).
		Build()

	resp, err := c.larkCli.Im.ChatMembers.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("remove member failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("remove member error: %s", resp.Msg)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
