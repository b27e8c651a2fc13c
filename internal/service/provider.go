package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tobyn/brandlens/internal/domain"
)

// ProviderResponse is the outcome of one model completion. Success=false or
// empty content is treated as a per-prompt failure by the pipeline.
type ProviderResponse struct {
	Success bool
	Content string
}

// ModelProvider answers audit prompts. Implementations must be safe for
// sequential reuse across jobs.
type ModelProvider interface {
	Complete(ctx context.Context, prompt string) (*ProviderResponse, error)
	Platform() domain.Platform
}

// ProviderConfig holds configuration for the ChatGPT provider.
type ProviderConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// ChatGPTProvider queries an OpenAI-compatible chat-completions endpoint.
type ChatGPTProvider struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewChatGPTProvider creates the provider client.
func NewChatGPTProvider(cfg *ProviderConfig) *ChatGPTProvider {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(120 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ChatGPTProvider{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Platform returns the provider's platform tag.
func (p *ChatGPTProvider) Platform() domain.Platform {
	return domain.PlatformChatGPT
}

// OpenAI-compatible chat completion request/response structures
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one prompt and returns the raw completion text.
func (p *ChatGPTProvider) Complete(ctx context.Context, prompt string) (*ProviderResponse, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	var resp chatResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(p.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call provider API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return nil, fmt.Errorf("provider API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("provider API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return &ProviderResponse{Success: false}, nil
	}

	content := resp.Choices[0].Message.Content
	return &ProviderResponse{
		Success: content != "",
		Content: content,
	}, nil
}
