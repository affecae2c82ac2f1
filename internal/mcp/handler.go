package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler serves the admin tools by relaying them to the HTTP API
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// ============ Stats ============

type StatsInput struct {
	ChatID string `json:"chat_id,omitempty" jsonschema:"chat to report on; all chats when empty"`
}

func (h *Handler) Stats(ctx context.Context, req *mcp.CallToolRequest, in StatsInput) (*mcp.CallToolResult, DailyStats, error) {
	stats, err := h.client.Stats(ctx, strings.TrimSpace(in.ChatID))
	if err != nil {
		return nil, DailyStats{}, err
	}
	return nil, *stats, nil
}

// ============ Whitelist ============

type WhitelistListInput struct{}

type WhitelistListOutput struct {
	Entries []WhitelistEntry `json:"entries"`
}

func (h *Handler) WhitelistList(ctx context.Context, req *mcp.CallToolRequest, in WhitelistListInput) (*mcp.CallToolResult, WhitelistListOutput, error) {
	entries, err := h.client.GetWhitelist(ctx)
	if err != nil {
		return nil, WhitelistListOutput{}, err
	}
	if entries == nil {
		entries = []WhitelistEntry{}
	}
	return nil, WhitelistListOutput{Entries: entries}, nil
}

type WhitelistAddInput struct {
	UserID   string `json:"user_id" jsonschema:"platform user ID to exempt from moderation"`
	Username string `json:"username,omitempty" jsonschema:"display handle, informational only"`
}

// SuccessOutput is returned by the mutating tools
type SuccessOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) WhitelistAdd(ctx context.Context, req *mcp.CallToolRequest, in WhitelistAddInput) (*mcp.CallToolResult, SuccessOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, SuccessOutput{}, errors.New("user_id is required")
	}
	if err := h.client.AddToWhitelist(ctx, userID, in.Username); err != nil {
		return nil, SuccessOutput{}, err
	}
	return nil, SuccessOutput{Success: true, Message: userID + " is whitelisted"}, nil
}

type WhitelistRemoveInput struct {
	UserID string `json:"user_id" jsonschema:"platform user ID to remove"`
}

func (h *Handler) WhitelistRemove(ctx context.Context, req *mcp.CallToolRequest, in WhitelistRemoveInput) (*mcp.CallToolResult, SuccessOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, SuccessOutput{}, errors.New("user_id is required")
	}
	if err := h.client.RemoveFromWhitelist(ctx, userID); err != nil {
		return nil, SuccessOutput{}, err
	}
	return nil, SuccessOutput{Success: true, Message: userID + " removed from the whitelist"}, nil
}

// ============ Keywords ============

type KeywordListInput struct {
	IncludeInactive bool `json:"include_inactive,omitempty" jsonschema:"also list retired keywords"`
}

type KeywordListOutput struct {
	Keywords []Keyword `json:"keywords"`
}

func (h *Handler) KeywordList(ctx context.Context, req *mcp.CallToolRequest, in KeywordListInput) (*mcp.CallToolResult, KeywordListOutput, error) {
	keywords, err := h.client.GetKeywords(ctx, in.IncludeInactive)
	if err != nil {
		return nil, KeywordListOutput{}, err
	}
	if keywords == nil {
		keywords = []Keyword{}
	}
	return nil, KeywordListOutput{Keywords: keywords}, nil
}

type KeywordLearnInput struct {
	Keyword       string `json:"keyword" jsonschema:"term to count as a spam keyword"`
	Category      string `json:"category,omitempty" jsonschema:"free-form category, manual when empty"`
	SourceExcerpt string `json:"source_excerpt,omitempty" jsonschema:"spam text the keyword was taken from"`
}

func (h *Handler) KeywordLearn(ctx context.Context, req *mcp.CallToolRequest, in KeywordLearnInput) (*mcp.CallToolResult, SuccessOutput, error) {
	if strings.TrimSpace(in.Keyword) == "" {
		return nil, SuccessOutput{}, errors.New("keyword is required")
	}
	if err := h.client.AddKeyword(ctx, in.Keyword, in.Category, in.SourceExcerpt); err != nil {
		return nil, SuccessOutput{}, err
	}
	return nil, SuccessOutput{Success: true, Message: "learned " + strings.ToLower(strings.TrimSpace(in.Keyword))}, nil
}

type KeywordForgetInput struct {
	Keyword string `json:"keyword" jsonschema:"learned keyword to retire"`
}

func (h *Handler) KeywordForget(ctx context.Context, req *mcp.CallToolRequest, in KeywordForgetInput) (*mcp.CallToolResult, SuccessOutput, error) {
	if strings.TrimSpace(in.Keyword) == "" {
		return nil, SuccessOutput{}, errors.New("keyword is required")
	}
	if err := h.client.RemoveKeyword(ctx, in.Keyword); err != nil {
		return nil, SuccessOutput{}, err
	}
	return nil, SuccessOutput{Success: true}, nil
}

// ============ Scoring ============

type ScoreTextInput struct {
	Text        string `json:"text" jsonschema:"message text to score"`
	HasMedia    bool   `json:"has_media,omitempty" jsonschema:"score as if the message carried media"`
	IsNewMember bool   `json:"is_new_member,omitempty" jsonschema:"score as if the author joined recently"`
}

func (h *Handler) ScoreText(ctx context.Context, req *mcp.CallToolRequest, in ScoreTextInput) (*mcp.CallToolResult, Score, error) {
	score, err := h.client.ScoreText(ctx, in.Text, in.HasMedia, in.IsNewMember)
	if err != nil {
		return nil, Score{}, err
	}
	if score.Reasons == nil {
		score.Reasons = []string{}
	}
	return nil, *score, nil
}
