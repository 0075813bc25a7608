package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/postgres"
	"github.com/phrazzld/fiszki-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlmockNew(t *testing.T) (*sql.DB, sqlmock.Sqlmock, error) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err == nil {
		t.Cleanup(func() { _ = db.Close() })
	}
	return db, mock, err
}

func TestPostgresGenerationErrorLogStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := postgres.NewPostgresGenerationErrorLogStore(tx, nil)
		owner := testdb.CreateTestUser(t, tx)

		for _, code := range []string{"INPUT_TOO_SHORT", "LLM_TIMEOUT"} {
			entry := &domain.GenerationErrorLog{
				UserID:           owner,
				ErrorCode:        code,
				ErrorMessage:     "failed",
				SourceTextHash:   hashOf("9"),
				SourceTextLength: 12,
				Model:            "m",
			}
			require.NoError(t, s.Create(ctx, entry))
			assert.NotZero(t, entry.ID)
			assert.False(t, entry.CreatedAt.IsZero())
		}

		entries, err := s.ListByUser(ctx, owner, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "LLM_TIMEOUT", entries[0].ErrorCode)
	})
}
