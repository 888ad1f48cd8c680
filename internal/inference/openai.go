package inference

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIClient struct {
	http      *resty.Client
	model     string
	maxTokens int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
func NewOpenAIClient(baseURL, apiKey, model string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	var (
		out    chatResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			MaxTokens: c.maxTokens,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", unavailable("request failed: %v", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", unavailable("status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", unavailable("status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", unavailable("no completion returned")
	}

	return out.Choices[0].Message.Content, nil
}
