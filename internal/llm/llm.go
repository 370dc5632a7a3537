package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 1200
)

var (
	ErrNoChoices    = errors.New("no choices in chat response")
	ErrEmptyContent = errors.New("empty content in chat response")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces narrative text from a conversation.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	IsConfigured() bool
}

// Options configures a ChatClient.
type Options struct {
	BaseURL     string
	Model       string
	APIKeyEnv   string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MinInterval time.Duration
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	log         *zap.Logger
}

// NewChatClient creates a chat client. The API key is read from the
// environment variable named by APIKeyEnv, when set.
func NewChatClient(opts Options, logger *zap.Logger) *ChatClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	var key string
	if opts.APIKeyEnv != "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	return &ChatClient{
		BaseURL:     opts.BaseURL,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		apiKey:      key,
		client:      &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		log:         logger,
	}
}

// IsConfigured reports whether an endpoint and model are set.
func (c *ChatClient) IsConfigured() bool {
	return c.BaseURL != "" && c.Model != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one request and returns the first choice's content. It is
// never retried; any non-2xx status, missing choice or empty content is an
// error.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("chat client not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	data, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := StripFences(result.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}

	c.log.Info("chat completion finished",
		zap.String("model", c.Model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("chars", len(content)))
	return content, nil
}
