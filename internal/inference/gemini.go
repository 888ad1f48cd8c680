package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

// GeminiClient uses the Gemini API through google.golang.org/genai.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		model:     opts.Model,
		maxTokens: int32(opts.MaxTokens),
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx,
		c.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			MaxOutputTokens:   c.maxTokens,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", unavailable("generate content: %v", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", unavailable("no completion returned")
	}

	return resp.Text(), nil
}
