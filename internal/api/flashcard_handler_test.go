package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Code
}

func TestFlashcardHandler_List(t *testing.T) {
	userID := uuid.New()
	aiFull := domain.SourceAIFull

	tests := []struct {
		name       string
		query      string
		wantParams *service.ListParams
		wantStatus int
		wantCode   string
	}{
		{name: "defaults", query: "", wantParams: &service.ListParams{}, wantStatus: http.StatusOK},
		{
			name:       "all params",
			query:      "?page=2&limit=50&sort_by=front&filter[source]=ai-full",
			wantParams: &service.ListParams{Page: 2, Limit: 50, SortBy: store.SortByFront, Source: &aiFull},
			wantStatus: http.StatusOK,
		},
		{name: "page zero", query: "?page=0", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "limit not a number", query: "?limit=ten", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "unknown sort", query: "?sort_by=color", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
		{name: "unknown source", query: "?filter[source]=robot", wantStatus: http.StatusBadRequest, wantCode: CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFlashcardService{}
			if tt.wantParams != nil {
				svc.On("List", mock.Anything, userID, *tt.wantParams).Return(&service.FlashcardPage{
					Flashcards: []*domain.Flashcard{},
					Pagination: service.Pagination{Page: 1, Limit: 20, Total: 0},
				}, nil)
			}
			router := newTestRouter(userID, svc, nil, nil, nil)

			w := doRequest(router, http.MethodGet, "/api/flashcards"+tt.query, "")

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			} else {
				assert.JSONEq(t, `{"flashcards":[],"pagination":{"page":1,"limit":20,"total":0}}`, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestFlashcardHandler_RequiresUser(t *testing.T) {
	router := newTestRouter(uuid.Nil, &mockFlashcardService{}, nil, nil, nil)

	w := doRequest(router, http.MethodGet, "/api/flashcards", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, errorCode(t, w))
}

func TestFlashcardHandler_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Create", mock.Anything, userID, "Q", "A").
			Return(&domain.Flashcard{ID: 5, UserID: userID, Front: "Q", Back: "A", Source: domain.SourceManual}, nil)

		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodPost, "/api/flashcards",
			`{"front":"Q","back":"A","source":"manual"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var card domain.Flashcard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
		assert.Equal(t, int64(5), card.ID)
		assert.Equal(t, domain.SourceManual, card.Source)
	})

	for name, body := range map[string]string{
		"ai source":     `{"front":"Q","back":"A","source":"ai-full"}`,
		"missing front": `{"back":"A"}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := &mockFlashcardService{}
			w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodPost, "/api/flashcards", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, CodeValidation, errorCode(t, w))
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("too long", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Create", mock.Anything, userID, mock.Anything, "A").
			Return(nil, domain.NewValidationError("front", "must be 200 characters or less"))
		body := `{"front":"` + strings.Repeat("x", 201) + `","back":"A"}`

		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodPost, "/api/flashcards", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Front must be 200 characters or less")
	})

	malformed := map[string]string{
		"truncated":      `{"front":"a","back":`,
		"trailing value": `{"front":"a","back":"b"} {}`,
		"wrong type":     `{"front":1,"back":"b"}`,
		"not json":       `front=a`,
	}
	for name, body := range malformed {
		t.Run("malformed json "+name, func(t *testing.T) {
			svc := &mockFlashcardService{}
			w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodPost, "/api/flashcards", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, CodeInvalidJSON, errorCode(t, w))
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestFlashcardHandler_SingleResource(t *testing.T) {
	userID := uuid.New()
	card := &domain.Flashcard{ID: 3, UserID: userID, Front: "Q", Back: "A", Source: domain.SourceManual}

	t.Run("get", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Get", mock.Anything, userID, int64(3)).Return(card, nil)
		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodGet, "/api/flashcards/3", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Get", mock.Anything, userID, int64(4)).Return(nil, service.ErrFlashcardNotFound)
		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodGet, "/api/flashcards/4", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, CodeFlashcardNotFound, errorCode(t, w))
	})

	for _, id := range []string{"abc", "0", "-1"} {
		t.Run("invalid id "+id, func(t *testing.T) {
			svc := &mockFlashcardService{}
			w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodGet, "/api/flashcards/"+id, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, CodeInvalidID, errorCode(t, w))
			svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("update back only", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Update", mock.Anything, userID, int64(3), (*string)(nil), mock.MatchedBy(func(b *string) bool {
			return b != nil && *b == "New"
		})).Return(card, nil)
		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodPut, "/api/flashcards/3", `{"back":"New"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delete", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Delete", mock.Anything, userID, int64(3)).Return(nil)
		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodDelete, "/api/flashcards/3", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("stats", func(t *testing.T) {
		svc := &mockFlashcardService{}
		svc.On("Stats", mock.Anything, userID).
			Return(domain.NewFlashcardStats(map[domain.Source]int{domain.SourceManual: 3, domain.SourceAIFull: 7}), nil)
		w := doRequest(newTestRouter(userID, svc, nil, nil, nil), http.MethodGet, "/api/flashcards/stats", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total":10,"ai_generated":7,"manual":3,"to_review":3}`, w.Body.String())
	})
}
