package models

import (
	"strings"
	"time"
)

// Identity binds a login identifier to a user within one authentication
// backend. The login is trimmed once at creation and never changes; the
// (authenticator, login) pair is unique.
type Identity struct {
	ID              string `gorm:"primaryKey"`
	AuthenticatorID string `gorm:"uniqueIndex:idx_identities_backend_login;not null"`
	LoginID         string `gorm:"uniqueIndex:idx_identities_backend_login;not null"`
	UserID          string `gorm:"index;not null"`

	// PasswordHash is the bcrypt hash used by the local backend. Backends
	// that verify credentials elsewhere leave it empty.
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeLogin applies the trim normalization performed at identity
// creation. Lookups use the same normalization so stored and queried keys
// always agree.
func NormalizeLogin(login string) string {
	return strings.TrimSpace(login)
}
