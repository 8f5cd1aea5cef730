package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultRequestTimeout = 120 * time.Second

type OpenAIOptions struct {
	// Endpoint is the API base, e.g. "https://api.openai.com/v1" or any
	// OpenAI-compatible gateway.
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	http *resty.Client
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("llm endpoint is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(opts.APIKey) != "" {
		client.SetAuthToken(strings.TrimSpace(opts.APIKey))
	}
	return &OpenAIClient{http: client}, nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) Chat(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Model) == "" {
		return Result{}, fmt.Errorf("llm model is required")
	}
	if len(req.Messages) == 0 {
		return Result{}, fmt.Errorf("at least one message is required")
	}

	start := time.Now()
	var out chatCompletionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return Result{}, fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return Result{}, fmt.Errorf("chat completion failed (%s): %s", resp.Status(), out.Error.Message)
		}
		return Result{}, fmt.Errorf("chat completion failed: %s", resp.Status())
	}
	if len(out.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion returned no choices")
	}

	return Result{
		Text: strings.TrimSpace(out.Choices[0].Message.Content),
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}
