package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/TCH93/Indico-Dev/internal/config"
)

// Result holds an issued token.
type Result struct {
	TokenString string
	ExpiresAt   time.Time
}

// Claims is the validated view of a session token.
type Claims struct {
	UserID  string
	Backend string
}

// LocalProvider generates and validates session JWTs locally.
type LocalProvider struct {
	config *config.Config
}

// NewLocalProvider creates a new local token provider
func NewLocalProvider(cfg *config.Config) *LocalProvider {
	return &LocalProvider{config: cfg}
}

// GenerateToken creates a signed session JWT for an authenticated user.
func (p *LocalProvider) GenerateToken(
	ctx context.Context,
	userID, backend string,
) (*Result, error) {
	expiresAt := time.Now().Add(p.config.JWTExpiration)
	claims := jwt.MapClaims{
		"user_id": userID,
		"backend": backend,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
		"iss":     p.config.BaseURL,
		"sub":     userID,
		"jti":     uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken verifies a session JWT and extracts its claims.
func (p *LocalProvider) ValidateToken(
	ctx context.Context,
	tokenString string,
) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	backend, _ := claims["backend"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: userID, Backend: backend}, nil
}
