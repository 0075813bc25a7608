package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/redact"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "qwen/qwen3-1.7b:free"
	DefaultTimeout = 30 * time.Second
	DefaultTitle   = "Fiszki"

	maxErrorBody = 4 << 10
)

// Config configures a Client.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	DefaultParams map[string]any
	HTTPReferer   string
	AppTitle      string
	UserAgent     string
}

// Client is an OpenRouter chat-completions client. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces time.Now, used when interpreting Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

var _ llm.ChatClient = (*Client)(nil)

// NewClient validates cfg, fills defaults and returns a Client.
// A missing API key yields llm.ErrNotConfigured.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, llm.NewError(llm.ErrNotConfigured, "openrouter API key is empty", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AppTitle == "" {
		cfg.AppTitle = DefaultTitle
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = cfg.AppTitle + "/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger.With(slog.String("component", "openrouter_client")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.cfg.Model
}

type responseFormatPayload struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type envelope struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// buildPayload merges, in order: messages and model, default params, call
// params, then the response format.
func (c *Client) buildPayload(messages []llm.Message, o llm.ChatOptions) map[string]any {
	model := o.Model
	if model == "" {
		model = c.cfg.Model
	}
	payload := map[string]any{
		"messages": messages,
		"model":    model,
	}
	for k, v := range c.cfg.DefaultParams {
		payload[k] = v
	}
	for k, v := range o.Params {
		payload[k] = v
	}
	if rf := o.ResponseFormat; rf != nil {
		payload["response_format"] = responseFormatPayload{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   rf.Name,
				Strict: rf.Strict,
				Schema: rf.Schema,
			},
		}
	}
	return payload
}

// SendChat implements llm.ChatClient.
func (c *Client) SendChat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (*llm.ChatResponse, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	o := llm.ApplyOptions(opts...)

	body, err := json.Marshal(c.buildPayload(messages, o))
	if err != nil {
		return nil, llm.NewError(llm.ErrProvider, "failed to encode request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError(llm.ErrProvider, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Title", c.cfg.AppTitle)
	if c.cfg.HTTPReferer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.HTTPReferer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, reqCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := errorDetail(raw)
		log.Warn("openrouter request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", redact.String(detail)),
			slog.Duration("duration", time.Since(start)))
		retryAfter := llm.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, llm.ErrorFromStatus(resp.StatusCode, retryAfter, detail)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if reqCtx.Err() != nil {
			return nil, c.transportError(ctx, reqCtx, err)
		}
		return nil, llm.NewError(llm.ErrValidation, "invalid response envelope", err)
	}
	if len(env.Choices) == 0 {
		if env.Error != nil && env.Error.Message != "" {
			return nil, llm.NewError(llm.ErrProvider, env.Error.Message, nil)
		}
		return nil, llm.NewError(llm.ErrValidation, "missing content", nil)
	}

	content, err := llm.ContentText(env.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	structured, err := llm.ParseStructured(content, o.ResponseFormat)
	if err != nil {
		log.Warn("openrouter response failed validation",
			slog.String("error", err.Error()),
			slog.Int("content_length", len(content)))
		return nil, err
	}

	model := env.Model
	if model == "" {
		model = payloadModel(o, c.cfg.Model)
	}

	log.Debug("openrouter request completed",
		slog.String("model", model),
		slog.Duration("duration", time.Since(start)))

	return &llm.ChatResponse{Content: content, Structured: structured, Model: model}, nil
}

func payloadModel(o llm.ChatOptions, fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}

// transportError classifies a failure that produced no HTTP response.
func (c *Client) transportError(parent, reqCtx context.Context, err error) error {
	switch {
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil:
		return llm.NewError(llm.ErrTimeout,
			fmt.Sprintf("no response within %s", c.cfg.Timeout), err)
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return llm.NewError(llm.ErrTimeout, "caller deadline exceeded", err)
	case errors.Is(parent.Err(), context.Canceled):
		return llm.NewError(llm.ErrUnavailable, "request canceled", err)
	default:
		return llm.NewError(llm.ErrUnavailable, "network error", err)
	}
}

func errorDetail(raw []byte) string {
	var body struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
