package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/ai"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/utils"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

const (
	defaultBaseURL      = "https://api.openai.com"
	chatCompletionPath  = "/v1/chat/completions"
	contentType         = "application/json"
	defaultMaxRetries   = 3
	defaultMaxLogLength = 200
	defaultBackoff      = time.Second
	userAgent           = "spigell/interview-coach"
)

// Config holds the OpenAI-compatible backend settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxRetries   int
	MaxLogLength int
}

// Client talks to an OpenAI-compatible Chat Completions endpoint
// (OpenAI, Ollama, vLLM).
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration

	apiKey     string
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

var _ ai.Generator = (*Client)(nil)

// New creates a Client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		BaseURL:    baseURL,
		Backoff:    defaultBackoff,
		apiKey:     apiKey,
		model:      model,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLen,
		logger:     logger.WithCommonFields(log, "openai", model),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// statusError is returned for non-200 responses.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openai api error (status %d): %s", e.Code, e.Body)
}

func (e *statusError) temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Generate sends a non-streaming chat completion request.
func (c *Client) Generate(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	if c == nil || c.HTTPClient == nil {
		return "", errors.New("openai client is not initialized")
	}

	body := chatRequest{
		Model:       c.model,
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
	}
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := string(msg.Role)
		if role == "" {
			role = string(ai.RoleUser)
		}
		body.Messages = append(body.Messages, chatMessage{Role: role, Content: msg.Content})
	}

	if len(body.Messages) == 0 {
		return "", errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	last := body.Messages[len(body.Messages)-1].Content
	c.logger.Debug("openai chat completion request",
		zap.Int("messages", len(body.Messages)),
		zap.Int("prompt_length", utf8.RuneCountInString(last)),
		zap.String("prompt_preview", utils.TruncateForLog(last, c.maxLogLen)),
	)

	var lastErr error
	delay := c.Backoff
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		output, err := c.complete(ctx, payload)
		if err == nil {
			c.logger.Debug("openai chat completion response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", utils.TruncateForLog(output, c.maxLogLen)),
			)
			return output, nil
		}
		lastErr = err

		var se *statusError
		if !errors.As(err, &se) || !se.temporary() || attempt == c.maxRetries {
			break
		}

		c.logger.Warn("openai request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", lastErr
}

func (c *Client) complete(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+chatCompletionPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{Code: resp.StatusCode, Body: utils.TruncateForLog(string(data), 512)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("openai api error: %s", parsed.Error.Message)
	}

	for _, choice := range parsed.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}

	return "", errors.New("openai api returned empty response")
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
}
