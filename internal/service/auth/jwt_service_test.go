package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/config"
	"github.com/phrazzld/fiszki-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60}
}

func fixedClock(t time.Time) auth.JWTOption {
	return auth.WithTimeFunc(func() time.Time { return t })
}

func TestNewJWTService_Validation(t *testing.T) {
	_, err := auth.NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := auth.NewJWTService(testAuthConfig(), fixedClock(now))
	require.NoError(t, err)

	userID := uuid.New()
	token, expiresAt, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Failures(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := auth.NewJWTService(testAuthConfig(), fixedClock(issued))
	require.NoError(t, err)
	token, _, err := issuer.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name    string
		cfg     config.AuthConfig
		now     time.Time
		token   string
		wantErr error
	}{
		{
			name:    "expired beyond skew",
			cfg:     testAuthConfig(),
			now:     issued.Add(time.Hour + 3*time.Minute),
			token:   token,
			wantErr: auth.ErrExpiredToken,
		},
		{
			name:    "issued in the future beyond skew",
			cfg:     testAuthConfig(),
			now:     issued.Add(-5 * time.Minute),
			token:   token,
			wantErr: auth.ErrTokenNotYetValid,
		},
		{
			name:    "wrong secret",
			cfg:     config.AuthConfig{JWTSecret: "another-secret-that-is-long-enough-xx", TokenLifetimeMinutes: 60},
			now:     issued,
			token:   token,
			wantErr: auth.ErrInvalidToken,
		},
		{
			name:    "malformed",
			cfg:     testAuthConfig(),
			now:     issued,
			token:   "not.a.jwt",
			wantErr: auth.ErrInvalidToken,
		},
		{
			name:    "empty",
			cfg:     testAuthConfig(),
			now:     issued,
			token:   "",
			wantErr: auth.ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewJWTService(tt.cfg, fixedClock(tt.now))
			require.NoError(t, err)
			_, err = svc.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateToken_WithinClockSkew(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := auth.NewJWTService(testAuthConfig(), fixedClock(issued))
	require.NoError(t, err)
	token, _, err := issuer.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	validator, err := auth.NewJWTService(testAuthConfig(), fixedClock(issued.Add(time.Hour+time.Minute)))
	require.NoError(t, err)
	_, err = validator.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"uid":  uuid.New().String(),
		"sub":  "x",
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	svc, err := auth.NewJWTService(testAuthConfig())
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateToken_RequiresAccessType(t *testing.T) {
	userID := uuid.New()
	claims := jwt.MapClaims{
		"uid":  userID.String(),
		"sub":  userID.String(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	svc, err := auth.NewJWTService(testAuthConfig())
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
