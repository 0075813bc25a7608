package service_test

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/store"
	"github.com/stretchr/testify/mock"
)

type fakeTransactor struct{}

func (fakeTransactor) Run(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

type mockFlashcardStore struct {
	mock.Mock
}

func (m *mockFlashcardStore) Create(ctx context.Context, f *domain.Flashcard) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockFlashcardStore) GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Flashcard, error) {
	args := m.Called(ctx, id, userID)
	f, _ := args.Get(0).(*domain.Flashcard)
	return f, args.Error(1)
}

func (m *mockFlashcardStore) List(ctx context.Context, userID uuid.UUID, q store.FlashcardQuery) ([]*domain.Flashcard, error) {
	args := m.Called(ctx, userID, q)
	f, _ := args.Get(0).([]*domain.Flashcard)
	return f, args.Error(1)
}

func (m *mockFlashcardStore) Count(ctx context.Context, userID uuid.UUID, filter store.FlashcardFilter) (int, error) {
	args := m.Called(ctx, userID, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockFlashcardStore) CountBySource(ctx context.Context, userID uuid.UUID) (map[domain.Source]int, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(map[domain.Source]int)
	return c, args.Error(1)
}

func (m *mockFlashcardStore) Update(ctx context.Context, f *domain.Flashcard) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockFlashcardStore) Delete(ctx context.Context, id int64, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockFlashcardStore) WithTx(*sql.Tx) store.FlashcardStore {
	return m
}
