package generation_test

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/store"
	"github.com/stretchr/testify/mock"
)

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) SendChat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (*llm.ChatResponse, error) {
	args := m.Called(ctx, messages, llm.ApplyOptions(opts...))
	resp, _ := args.Get(0).(*llm.ChatResponse)
	return resp, args.Error(1)
}

// replyWith returns a Run function that decodes content into the request's
// structured output target, as a real client would.
func replyWith(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		o := args.Get(2).(llm.ChatOptions)
		if _, err := llm.ParseStructured(content, o.ResponseFormat); err != nil {
			panic(err)
		}
	}
}

type fakeTransactor struct {
	calls int
	err   error
}

func (f *fakeTransactor) Run(ctx context.Context, fn store.TxFn) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

type mockGenerationStore struct {
	mock.Mock
}

func (m *mockGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockGenerationStore) GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Generation, error) {
	args := m.Called(ctx, id, userID)
	g, _ := args.Get(0).(*domain.Generation)
	return g, args.Error(1)
}

func (m *mockGenerationStore) GetCandidateForUpdate(ctx context.Context, generationID int64, position int) (*domain.Candidate, error) {
	args := m.Called(ctx, generationID, position)
	c, _ := args.Get(0).(*domain.Candidate)
	return c, args.Error(1)
}

func (m *mockGenerationStore) UpdateCandidate(ctx context.Context, c *domain.Candidate) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockGenerationStore) AdjustCounters(ctx context.Context, generationID int64, uneditedDelta, editedDelta int) error {
	return m.Called(ctx, generationID, uneditedDelta, editedDelta).Error(0)
}

func (m *mockGenerationStore) WithTx(*sql.Tx) store.GenerationStore {
	return m
}

type mockErrorLogStore struct {
	mock.Mock
}

func (m *mockErrorLogStore) Create(ctx context.Context, entry *domain.GenerationErrorLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockErrorLogStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.GenerationErrorLog, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]*domain.GenerationErrorLog)
	return entries, args.Error(1)
}
