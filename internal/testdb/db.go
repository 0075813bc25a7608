package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/fiszki-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds setup operations against the test database.
const TestTimeout = 10 * time.Second

// IsIntegrationTestEnvironment reports whether DATABASE_URL is set.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns DATABASE_URL.
func GetTestDatabaseURL() string {
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

// GetTestDBWithT opens the test database, applies all migrations and closes
// the connection when the test ends. The test is skipped without DATABASE_URL.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database ping failed")

	require.NoError(t,
		postgres.RunMigrations(ctx, db, &testGooseLogger{t: t}, "up"),
		"failed to apply migrations")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
	return db
}

// WithTx runs fn in a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CreateTestUser inserts a user directly and returns its id.
func CreateTestUser(t *testing.T, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, hashed_password) VALUES ($1, $2, $3)`,
		id, fmt.Sprintf("user-%s@example.com", id), "$2a$10$abcdefghijklmnopqrstuuJ2VfDiBHDa5jW0H7e4Ge2Ugq4uQjK2S")
	require.NoError(t, err, "failed to create test user")
	return id
}

// CleanupUser removes a user and, by cascade, everything it owns.
// Used by tests that must commit, such as concurrency tests.
func CleanupUser(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, id); err != nil {
		t.Logf("failed to clean up user %s: %v", id, err)
	}
}

type testGooseLogger struct {
	t *testing.T
}

func (l *testGooseLogger) Printf(format string, v ...any) {
	l.t.Logf("goose: %s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *testGooseLogger) Fatalf(format string, v ...any) {
	l.t.Fatalf("goose fatal: %s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}
