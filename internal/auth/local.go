package auth

import (
	"context"
	"errors"
	"log"

	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/models"
	"github.com/TCH93/Indico-Dev/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BackendLocal is the backend id of the local database backend.
const BackendLocal = "local"

// Compile-time interface check.
var _ core.Authenticator = (*LocalBackend)(nil)

// LocalBackend verifies credentials against bcrypt hashes stored on the
// identity records themselves. It has no directory behind it, so every
// search operation keeps the neutral default.
type LocalBackend struct {
	UnsupportedBackend
	store *store.Store
}

// NewLocalBackend creates the local database backend.
func NewLocalBackend(s *store.Store, cfg *config.Config) *LocalBackend {
	return &LocalBackend{
		UnsupportedBackend: NewUnsupportedBackend(
			BackendLocal,
			"Local",
			"Accounts held in the local user database",
			cfg,
		),
		store: s,
	}
}

// AuthenticateCredential compares the secret against the identity's stored
// hash. Unknown logins and bad secrets both come back as (nil, nil) so the
// caller cannot tell which identities exist.
func (b *LocalBackend) AuthenticateCredential(
	ctx context.Context,
	loginID, secret string,
) (*models.User, error) {
	identity, err := b.store.GetIdentity(b.ID(), models.NormalizeLogin(loginID))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if identity.PasswordHash == "" {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(identity.PasswordHash),
		[]byte(secret),
	); err != nil {
		return nil, nil
	}

	user, err := b.store.GetUserByID(identity.UserID)
	if err != nil {
		log.Printf("[Auth] identity %s points at missing user %s", identity.LoginID, identity.UserID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateIdentity builds a new unlinked identity for the user. The secret is
// set separately via SetPassword before the record is added to a registry.
func (b *LocalBackend) CreateIdentity(user *models.User, loginID string) *models.Identity {
	return &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: b.ID(),
		LoginID:         models.NormalizeLogin(loginID),
		UserID:          user.ID,
	}
}

// SetPassword stores the bcrypt hash of the secret on an identity record.
func (b *LocalBackend) SetPassword(identity *models.Identity, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	identity.PasswordHash = string(hash)
	return nil
}

// MatchUser searches the local user database.
func (b *LocalBackend) MatchUser(
	ctx context.Context,
	criteria map[string]string,
	exact bool,
) ([]*models.User, error) {
	return b.store.FindUsers(criteria, exact, false, false)
}

// MatchUserFirstLetter searches the local name index.
func (b *LocalBackend) MatchUserFirstLetter(
	ctx context.Context,
	index, letter string,
) ([]*models.User, error) {
	return b.store.FindUsersByFirstLetter(index, letter)
}

// SearchUserByID looks up a local user by id.
func (b *LocalBackend) SearchUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := b.store.GetUserByID(id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	return user, err
}
