package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/redact"
	"google.golang.org/genai"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Config configures a Client.
type Config struct {
	APIKey string
	// BaseURL overrides the Gemini endpoint. Empty uses the genai default.
	BaseURL       string
	Model         string
	Timeout       time.Duration
	DefaultParams map[string]any
	// MaxRetries is the number of extra attempts after a transient failure.
	// Negative disables retries.
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client is a Gemini chat client. It is safe for concurrent use.
type Client struct {
	cfg    Config
	models *genai.Models
	logger *slog.Logger
}

var _ llm.ChatClient = (*Client)(nil)

// NewClient validates cfg and creates the underlying genai client.
// A missing API key yields llm.ErrNotConfigured.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, llm.NewError(llm.ErrNotConfigured, "gemini API key is empty", nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, llm.NewError(llm.ErrNotConfigured, "failed to create gemini client", err)
	}

	return &Client{
		cfg:    cfg,
		models: client.Models,
		logger: logger.With(slog.String("component", "gemini_client")),
	}, nil
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// SendChat implements llm.ChatClient.
func (c *Client) SendChat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (*llm.ChatResponse, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	o := llm.ApplyOptions(opts...)

	model := o.Model
	if model == "" {
		model = c.cfg.Model
	}

	contents, genCfg, err := c.buildRequest(messages, o)
	if err != nil {
		return nil, err
	}

	var (
		resp    *genai.GenerateContentResponse
		lastErr error
	)
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(c.cfg.RetryDelay, attempt)
			log.Info("retrying gemini request",
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, llm.NewError(llm.ErrUnavailable, "request canceled during retry", ctx.Err())
			}
		}

		resp, lastErr = c.generate(ctx, model, contents, genCfg)
		if lastErr == nil {
			break
		}
		log.Warn("gemini request failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", redact.Error(lastErr)))
		if !transient(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	content, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	structured, err := llm.ParseStructured(content, o.ResponseFormat)
	if err != nil {
		return nil, err
	}

	served := resp.ModelVersion
	if served == "" {
		served = model
	}
	return &llm.ChatResponse{Content: content, Structured: structured, Model: served}, nil
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(reqCtx, model, contents, cfg)
	if err == nil {
		return resp, nil
	}

	var apiErr genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return nil, llm.ErrorFromStatus(apiErr.Code, 0, apiErr.Message)
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, llm.NewError(llm.ErrTimeout, fmt.Sprintf("no response within %s", c.cfg.Timeout), err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, llm.NewError(llm.ErrTimeout, "caller deadline exceeded", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return nil, llm.NewError(llm.ErrUnavailable, "request canceled", err)
	default:
		return nil, llm.NewError(llm.ErrUnavailable, "network error", err)
	}
}

func (c *Client) buildRequest(messages []llm.Message, o llm.ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{}
	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, llm.NewError(llm.ErrProvider, "no user content to send", nil)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	params := make(map[string]any, len(c.cfg.DefaultParams)+len(o.Params))
	for k, v := range c.cfg.DefaultParams {
		params[k] = v
	}
	for k, v := range o.Params {
		params[k] = v
	}
	if t, ok := toFloat(params["temperature"]); ok {
		cfg.Temperature = genai.Ptr(float32(t))
	}
	if p, ok := toFloat(params["top_p"]); ok {
		cfg.TopP = genai.Ptr(float32(p))
	}
	if n, ok := toFloat(params["max_tokens"]); ok && n > 0 {
		cfg.MaxOutputTokens = int32(n)
	}

	if rf := o.ResponseFormat; rf != nil {
		cfg.ResponseMIMEType = "application/json"
		if rf.Schema != nil {
			cfg.ResponseSchema = SchemaFromJSON(rf.Schema)
		}
	}
	return contents, cfg, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", llm.NewError(llm.ErrValidation, "no candidates in response", nil)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", llm.NewError(llm.ErrValidation, "content blocked by safety filters", nil)
	}
	if cand.Content == nil {
		return "", llm.NewError(llm.ErrValidation, "missing content", nil)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", llm.NewError(llm.ErrValidation, "missing content", nil)
	}
	return b.String(), nil
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, llm.ErrServer) || errors.Is(err, llm.ErrUnavailable)
}

// backoff returns base * 2^(attempt-1) scaled by a jitter factor in [0.5, 1).
func backoff(base time.Duration, attempt int) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt-1))
	return time.Duration(d * (0.5 + rand.Float64()*0.5))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
