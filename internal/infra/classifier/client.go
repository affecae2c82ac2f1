package classifier

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.moonshot.cn/v1"
	defaultModel   = "moonshot-v1-8k"

	// longer messages are cut before classification
	maxInputRunes = 2000
)

// SystemPrompt instructs the model to answer with a single verdict word
const SystemPrompt = `You are a spam filter for a public group chat.

Classify the user's message as SPAM or HAM.
SPAM: unsolicited advertising, scams, phishing, fake giveaways or airdrops,
pump-and-dump or investment schemes, adult content promotion, mass invite links.
HAM: normal conversation, questions, opinions, links shared in context.

Reply only SPAM or HAM, no explanation.`

// Client is an OpenAI-compatible chat completion client used as a spam classifier
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a classifier client. Empty baseURL and model fall back
// to the Moonshot endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Classify returns true when the model labels text as spam
func (c *Client) Classify(ctx context.Context, text string) (bool, error) {
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		return false, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("no response choices")
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

func parseVerdict(answer string) (bool, error) {
	answer = strings.ToUpper(strings.TrimSpace(answer))
	switch {
	case strings.HasPrefix(answer, "SPAM"):
		return true, nil
	case strings.HasPrefix(answer, "HAM"):
		return false, nil
	default:
		return false, fmt.Errorf("unexpected classifier answer %q", answer)
	}
}
