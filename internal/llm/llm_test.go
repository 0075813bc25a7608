package llm_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card struct {
	Front *string `json:"front" validate:"required"`
	Back  *string `json:"back"  validate:"required"`
}

type cardsPayload struct {
	Flashcards []card `json:"flashcards" validate:"required,min=1,dive"`
}

func format() *llm.ResponseFormat {
	return &llm.ResponseFormat{Name: "flashcards", Strict: true, Into: &cardsPayload{}}
}

func TestApplyOptions(t *testing.T) {
	o := llm.ApplyOptions(
		llm.WithModel("m1"),
		llm.WithParams(map[string]any{"temperature": 0.2}),
		llm.WithParams(map[string]any{"max_tokens": 10}),
		llm.WithResponseFormat(llm.ResponseFormat{Name: "x"}),
		nil,
	)
	assert.Equal(t, "m1", o.Model)
	assert.Equal(t, map[string]any{"temperature": 0.2, "max_tokens": 10}, o.Params)
	require.NotNil(t, o.ResponseFormat)
	assert.Equal(t, "x", o.ResponseFormat.Name)
}

func TestParseStructured(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := format()
		v, err := llm.ParseStructured(`{"flashcards":[{"front":"Q1","back":"A1"}]}`, f)
		require.NoError(t, err)
		p := v.(*cardsPayload)
		require.Len(t, p.Flashcards, 1)
		assert.Equal(t, "Q1", *p.Flashcards[0].Front)
	})

	t.Run("code fence", func(t *testing.T) {
		v, err := llm.ParseStructured("```json\n{\"flashcards\":[{\"front\":\"Q\",\"back\":\"A\"}]}\n```", format())
		require.NoError(t, err)
		assert.Len(t, v.(*cardsPayload).Flashcards, 1)
	})

	invalid := map[string]string{
		"not json":      `Here are your flashcards!`,
		"empty array":   `{"flashcards":[]}`,
		"missing key":   `{"cards":[{"front":"Q","back":"A"}]}`,
		"missing back":  `{"flashcards":[{"front":"Q"}]}`,
		"wrong type":    `{"flashcards":[{"front":1,"back":"A"}]}`,
		"blank content": `  `,
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := llm.ParseStructured(content, format())
			assert.ErrorIs(t, err, llm.ErrValidation)
		})
	}

	t.Run("generic target", func(t *testing.T) {
		v, err := llm.ParseStructured(`{"a":1}`, &llm.ResponseFormat{Name: "any"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, v)
	})

	t.Run("no format", func(t *testing.T) {
		v, err := llm.ParseStructured("plain", nil)
		assert.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestContentText(t *testing.T) {
	s, err := llm.ContentText(json.RawMessage(`"{\"flashcards\":[]}"`))
	require.NoError(t, err)
	assert.Equal(t, `{"flashcards":[]}`, s)

	s, err = llm.ContentText(json.RawMessage(` {"flashcards":[]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"flashcards":[]}`, s)

	for _, raw := range []string{``, `null`, `""`} {
		_, err := llm.ContentText(json.RawMessage(raw))
		assert.ErrorIs(t, err, llm.ErrValidation, raw)
	}
}

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, llm.ErrAuthentication},
		{http.StatusForbidden, llm.ErrForbidden},
		{http.StatusTooManyRequests, llm.ErrRateLimited},
		{http.StatusRequestTimeout, llm.ErrRequestTimeout},
		{http.StatusInternalServerError, llm.ErrServer},
		{http.StatusBadGateway, llm.ErrServer},
		{http.StatusGatewayTimeout, llm.ErrServer},
		{http.StatusBadRequest, llm.ErrProvider},
		{http.StatusPaymentRequired, llm.ErrProvider},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := llm.ErrorFromStatus(tt.status, 5*time.Second, "detail")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Contains(t, err.Error(), "detail")
		})
	}

	rl := llm.ErrorFromStatus(http.StatusTooManyRequests, 7*time.Second, "")
	d, ok := llm.RetryAfterOf(fmt.Errorf("wrapped: %w", rl))
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, d)

	_, ok = llm.RetryAfterOf(llm.ErrorFromStatus(http.StatusUnauthorized, 7*time.Second, ""))
	assert.False(t, ok)
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := llm.NewError(llm.ErrUnavailable, "network error", cause)

	assert.ErrorIs(t, err, llm.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, llm.ErrTimeout)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Second, llm.ParseRetryAfter("30", now))
	assert.Equal(t, time.Duration(0), llm.ParseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), llm.ParseRetryAfter("-3", now))
	assert.Equal(t, time.Duration(0), llm.ParseRetryAfter("soon", now))
	assert.Equal(t, 90*time.Second,
		llm.ParseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0),
		llm.ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}
