package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the admin API of a running chatguard instance
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DailyStats mirrors the /stats response
type DailyStats struct {
	Date          string  `json:"date"`
	MessagesTotal int     `json:"messages_total"`
	SpamBlocked   int     `json:"spam_blocked"`
	CaptchaKicks  int     `json:"captcha_kicks"`
	MediaBlocks   int     `json:"media_blocks"`
	Verified      int     `json:"verified"`
	SpamRate      float64 `json:"spam_rate"`
}

// Stats gets today's counters; an empty chatID covers all chats
func (c *Client) Stats(ctx context.Context, chatID string) (*DailyStats, error) {
	path := "/stats"
	if chatID != "" {
		path += "?chat_id=" + url.QueryEscape(chatID)
	}
	var stats DailyStats
	if err := c.do(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ============ Whitelist Operations ============

// WhitelistEntry represents a whitelisted user
type WhitelistEntry struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	AddedBy   string `json:"added_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

// GetWhitelist gets all whitelisted users
func (c *Client) GetWhitelist(ctx context.Context) ([]WhitelistEntry, error) {
	var result struct {
		Entries []WhitelistEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/whitelist", nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// AddToWhitelist whitelists a user
func (c *Client) AddToWhitelist(ctx context.Context, userID, username string) error {
	body := map[string]string{"user_id": userID, "username": username}
	return c.do(ctx, http.MethodPost, "/api/whitelist", body, nil)
}

// RemoveFromWhitelist removes a user from the whitelist
func (c *Client) RemoveFromWhitelist(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/api/whitelist/"+url.PathEscape(userID), nil, nil)
}

// ============ Keyword Operations ============

// Keyword represents a learned keyword
type Keyword struct {
	Keyword       string `json:"keyword"`
	Category      string `json:"category"`
	AddedBy       string `json:"added_by"`
	AddedAt       string `json:"added_at"`
	SourceExcerpt string `json:"source_excerpt,omitempty"`
	Active        bool   `json:"active"`
}

// GetKeywords gets learned keywords, including retired ones when all is set
func (c *Client) GetKeywords(ctx context.Context, all bool) ([]Keyword, error) {
	path := "/api/keywords"
	if all {
		path += "?all=true"
	}
	var result struct {
		Keywords []Keyword `json:"keywords"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Keywords, nil
}

// AddKeyword learns a keyword
func (c *Client) AddKeyword(ctx context.Context, keyword, category, sourceExcerpt string) error {
	body := map[string]string{"keyword": keyword, "category": category, "source_excerpt": sourceExcerpt}
	return c.do(ctx, http.MethodPost, "/api/keywords", body, nil)
}

// RemoveKeyword retires a learned keyword
func (c *Client) RemoveKeyword(ctx context.Context, keyword string) error {
	return c.do(ctx, http.MethodDelete, "/api/keywords/"+url.PathEscape(keyword), nil, nil)
}

// ============ Scoring ============

// Score is the scorer verdict for a text
type Score struct {
	IsSpam  bool     `json:"is_spam"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// ScoreText runs the live signal profile against text without acting on it
func (c *Client) ScoreText(ctx context.Context, text string, hasMedia, isNewMember bool) (*Score, error) {
	body := map[string]interface{}{"text": text, "has_media": hasMedia, "is_new_member": isNewMember}
	var score Score
	if err := c.do(ctx, http.MethodPost, "/api/score", body, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// ============ HTTP Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
