package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/generation"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/service/auth"
	"github.com/phrazzld/fiszki-api/internal/service/review"
	"github.com/stretchr/testify/mock"
)

type mockFlashcardService struct {
	mock.Mock
}

func (m *mockFlashcardService) Create(ctx context.Context, userID uuid.UUID, front, back string) (*domain.Flashcard, error) {
	args := m.Called(ctx, userID, front, back)
	f, _ := args.Get(0).(*domain.Flashcard)
	return f, args.Error(1)
}

func (m *mockFlashcardService) List(ctx context.Context, userID uuid.UUID, params service.ListParams) (*service.FlashcardPage, error) {
	args := m.Called(ctx, userID, params)
	p, _ := args.Get(0).(*service.FlashcardPage)
	return p, args.Error(1)
}

func (m *mockFlashcardService) Get(ctx context.Context, userID uuid.UUID, id int64) (*domain.Flashcard, error) {
	args := m.Called(ctx, userID, id)
	f, _ := args.Get(0).(*domain.Flashcard)
	return f, args.Error(1)
}

func (m *mockFlashcardService) Update(ctx context.Context, userID uuid.UUID, id int64, front, back *string) (*domain.Flashcard, error) {
	args := m.Called(ctx, userID, id, front, back)
	f, _ := args.Get(0).(*domain.Flashcard)
	return f, args.Error(1)
}

func (m *mockFlashcardService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockFlashcardService) Stats(ctx context.Context, userID uuid.UUID) (domain.FlashcardStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.FlashcardStats), args.Error(1)
}

type mockGenerationService struct {
	mock.Mock
}

func (m *mockGenerationService) Generate(ctx context.Context, userID uuid.UUID, inputText string) (*generation.Result, error) {
	args := m.Called(ctx, userID, inputText)
	r, _ := args.Get(0).(*generation.Result)
	return r, args.Error(1)
}

func (m *mockGenerationService) Get(ctx context.Context, userID uuid.UUID, generationID int64) (*domain.Generation, error) {
	args := m.Called(ctx, userID, generationID)
	g, _ := args.Get(0).(*domain.Generation)
	return g, args.Error(1)
}

func (m *mockGenerationService) ListErrors(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.GenerationErrorLog, error) {
	args := m.Called(ctx, userID, limit)
	e, _ := args.Get(0).([]*domain.GenerationErrorLog)
	return e, args.Error(1)
}

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) Apply(
	ctx context.Context,
	userID uuid.UUID,
	generationID int64,
	position int,
	action domain.ReviewAction,
) (*review.Outcome, error) {
	args := m.Called(ctx, userID, generationID, position, action)
	o, _ := args.Get(0).(*review.Outcome)
	return o, args.Error(1)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	args := m.Called(ctx, email, password)
	r, _ := args.Get(0).(*auth.LoginResult)
	return r, args.Error(1)
}

func (m *mockAuthService) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

// asUser injects userID as the authenticated user, standing in for the auth middleware.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != uuid.Nil {
				r = r.WithContext(shared.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// newTestRouter mounts the handlers on the production paths.
func newTestRouter(
	userID uuid.UUID,
	flashcards service.FlashcardService,
	generations generation.Service,
	reviews review.Service,
	authSvc auth.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", Health)

	ah := NewAuthHandler(authSvc, nil)
	r.Post("/api/users/register", ah.Register)
	r.Post("/api/users/login", ah.Login)

	r.Group(func(r chi.Router) {
		r.Use(asUser(userID))
		r.Get("/api/users/profile", ah.Profile)

		fh := NewFlashcardHandler(flashcards, nil)
		r.Get("/api/flashcards", fh.List)
		r.Post("/api/flashcards", fh.Create)
		r.Get("/api/flashcards/stats", fh.Stats)
		r.Get("/api/flashcards/{id}", fh.Get)
		r.Put("/api/flashcards/{id}", fh.Update)
		r.Delete("/api/flashcards/{id}", fh.Delete)

		gh := NewGenerationHandler(generations, reviews, nil)
		r.Post("/api/generations", gh.Generate)
		r.Get("/api/generations/errors", gh.ListErrors)
		r.Get("/api/generations/{generationId}", gh.Get)
		r.Patch("/api/generations/{generationId}/flashcards/{flashcardId}", gh.Review)
	})
	return r
}
