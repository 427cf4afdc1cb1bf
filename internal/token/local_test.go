package token

import (
	"context"
	"testing"
	"time"

	"github.com/TCH93/Indico-Dev/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(expiration time.Duration) *LocalProvider {
	return NewLocalProvider(&config.Config{
		BaseURL:       "http://localhost:8080",
		JWTSecret:     "test-secret",
		JWTExpiration: expiration,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	p := newTestProvider(time.Hour)
	ctx := context.Background()

	result, err := p.GenerateToken(ctx, "user-1", "local")
	require.NoError(t, err)
	require.NotEmpty(t, result.TokenString)

	claims, err := p.ValidateToken(ctx, result.TokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "local", claims.Backend)
}

func TestValidateExpiredToken(t *testing.T) {
	p := newTestProvider(-time.Minute)
	ctx := context.Background()

	result, err := p.GenerateToken(ctx, "user-1", "local")
	require.NoError(t, err)

	_, err = p.ValidateToken(ctx, result.TokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateGarbageToken(t *testing.T) {
	p := newTestProvider(time.Hour)

	_, err := p.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateWrongSecret(t *testing.T) {
	p := newTestProvider(time.Hour)
	result, err := p.GenerateToken(context.Background(), "user-1", "local")
	require.NoError(t, err)

	other := NewLocalProvider(&config.Config{
		JWTSecret:     "different-secret",
		JWTExpiration: time.Hour,
	})
	_, err = other.ValidateToken(context.Background(), result.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
