package openrouter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/platform/openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*openrouter.Config)) *openrouter.Client {
	t.Helper()
	cfg := openrouter.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "default/model",
		Timeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := openrouter.NewClient(cfg, quietLogger(), openrouter.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func userMessage(text string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: text}}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := openrouter.NewClient(openrouter.Config{APIKey: "  "}, quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := openrouter.NewClient(openrouter.Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, openrouter.DefaultModel, c.Model())
}

func TestSendChat_RequestShape(t *testing.T) {
	var (
		gotPath    string
		gotHeaders http.Header
		gotPayload map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"model":"served/model","choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *openrouter.Config) {
		cfg.DefaultParams = map[string]any{"temperature": 0.7, "max_tokens": 2000}
		cfg.HTTPReferer = "https://fiszki.example"
		cfg.AppTitle = "Fiszki Test"
	})

	resp, err := c.SendChat(context.Background(), userMessage("hello"),
		llm.WithModel("override/model"),
		llm.WithParams(map[string]any{"temperature": 0.1}),
		llm.WithResponseFormat(llm.ResponseFormat{
			Name:   "answer",
			Strict: true,
			Schema: map[string]any{"type": "object"},
		}),
	)
	// "hi" is not JSON, so the structured decode fails after the request is sent.
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, llm.ErrValidation)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "https://fiszki.example", gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, "Fiszki Test", gotHeaders.Get("X-Title"))

	assert.Equal(t, "override/model", gotPayload["model"])
	assert.Equal(t, 0.1, gotPayload["temperature"])
	assert.Equal(t, float64(2000), gotPayload["max_tokens"])

	rf, ok := gotPayload["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	schema, ok := rf["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "answer", schema["name"])
	assert.Equal(t, true, schema["strict"])

	msgs, ok := gotPayload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "hello"}, msgs[0])
}

func TestSendChat_Content(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		opts      []llm.ChatOption
		wantText  string
		wantModel string
	}{
		{
			name:      "string content",
			body:      `{"model":"served/model","choices":[{"message":{"content":"plain reply"}}]}`,
			wantText:  "plain reply",
			wantModel: "served/model",
		},
		{
			name:      "object content",
			body:      `{"choices":[{"message":{"content":{"flashcards":[]}}}]}`,
			wantText:  `{"flashcards":[]}`,
			wantModel: "default/model",
		},
		{
			name:      "model falls back to call option",
			body:      `{"choices":[{"message":{"content":"x"}}]}`,
			opts:      []llm.ChatOption{llm.WithModel("call/model")},
			wantText:  "x",
			wantModel: "call/model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := newTestClient(t, srv, nil).SendChat(context.Background(), userMessage("q"), tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Content)
			assert.Equal(t, tt.wantModel, resp.Model)
			assert.Nil(t, resp.Structured)
		})
	}
}

type cardsReply struct {
	Flashcards []struct {
		Front string `json:"front" validate:"required"`
		Back  string `json:"back" validate:"required"`
	} `json:"flashcards" validate:"required,min=1,dive"`
}

func TestSendChat_StructuredOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: `{"flashcards":[{"front":"Q","back":"A"}]}`},
		{name: "fenced", content: "```json\n{\"flashcards\":[{\"front\":\"Q\",\"back\":\"A\"}]}\n```"},
		{name: "empty list", content: `{"flashcards":[]}`, wantErr: true},
		{name: "missing back", content: `{"flashcards":[{"front":"Q"}]}`, wantErr: true},
		{name: "not json", content: `sorry, I cannot`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				body, _ := json.Marshal(map[string]any{
					"choices": []any{map[string]any{"message": map[string]any{"content": tt.content}}},
				})
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			var into cardsReply
			resp, err := newTestClient(t, srv, nil).SendChat(context.Background(), userMessage("q"),
				llm.WithResponseFormat(llm.ResponseFormat{Name: "cards", Into: &into}))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, llm.ErrValidation)
				return
			}
			require.NoError(t, err)
			got, ok := resp.Structured.(*cardsReply)
			require.True(t, ok)
			require.Len(t, got.Flashcards, 1)
			assert.Equal(t, "Q", got.Flashcards[0].Front)
		})
	}
}

func TestSendChat_StatusMapping(t *testing.T) {
	tests := []struct {
		status     int
		body       string
		retryAfter string
		wantKind   error
		wantRetry  time.Duration
	}{
		{status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, wantKind: llm.ErrAuthentication},
		{status: http.StatusForbidden, wantKind: llm.ErrForbidden},
		{status: http.StatusTooManyRequests, retryAfter: "12", wantKind: llm.ErrRateLimited, wantRetry: 12 * time.Second},
		{status: http.StatusRequestTimeout, wantKind: llm.ErrRequestTimeout},
		{status: http.StatusInternalServerError, wantKind: llm.ErrServer},
		{status: http.StatusBadGateway, wantKind: llm.ErrServer},
		{status: http.StatusBadRequest, body: `model not found`, wantKind: llm.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).SendChat(context.Background(), userMessage("q"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)

			var llmErr *llm.Error
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.status, llmErr.StatusCode)

			retry, ok := llm.RetryAfterOf(err)
			assert.Equal(t, tt.wantRetry > 0, ok)
			assert.Equal(t, tt.wantRetry, retry)
		})
	}
}

func TestSendChat_ErrorDetailFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"No auth credentials found","code":401}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).SendChat(context.Background(), userMessage("q"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No auth credentials found")
}

func TestSendChat_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind error
	}{
		{name: "provider error in 200", body: `{"error":{"message":"upstream overloaded"}}`, wantKind: llm.ErrProvider},
		{name: "no choices", body: `{"choices":[]}`, wantKind: llm.ErrValidation},
		{name: "null content", body: `{"choices":[{"message":{"content":null}}]}`, wantKind: llm.ErrValidation},
		{name: "blank content", body: `{"choices":[{"message":{"content":"   "}}]}`, wantKind: llm.ErrValidation},
		{name: "malformed envelope", body: `{"choices":`, wantKind: llm.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).SendChat(context.Background(), userMessage("q"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestSendChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, func(cfg *openrouter.Config) {
		cfg.Timeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := c.SendChat(context.Background(), userMessage("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSendChat_CallerCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv, nil).SendChat(ctx, userMessage("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestSendChat_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: url}, quietLogger())
	require.NoError(t, err)

	_, err = c.SendChat(context.Background(), userMessage("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestSendChat_RetryAfterDate(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := openrouter.NewClient(
		openrouter.Config{APIKey: "k", BaseURL: srv.URL},
		quietLogger(),
		openrouter.WithHTTPClient(srv.Client()),
		openrouter.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	_, err = c.SendChat(context.Background(), userMessage("q"))
	retry, ok := llm.RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, retry)
}
