package auth

import (
	"context"

	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/models"
)

// UnsupportedBackend supplies the neutral default for every optional
// operation of core.Authenticator: nil or empty results, never errors.
// Concrete backends embed it and override only what they support, so a
// caller can probe any capability on any backend without special-casing.
type UnsupportedBackend struct {
	id          string
	defaultName string
	description string
	cfg         *config.Config
}

// NewUnsupportedBackend builds the embeddable default set for a backend.
func NewUnsupportedBackend(id, defaultName, description string, cfg *config.Config) UnsupportedBackend {
	return UnsupportedBackend{
		id:          id,
		defaultName: defaultName,
		description: description,
		cfg:         cfg,
	}
}

// ID returns the stable backend identifier matching configuration.
func (b UnsupportedBackend) ID() string { return b.id }

// DisplayName returns the configured name with the backend default as fallback.
func (b UnsupportedBackend) DisplayName() string {
	if name := b.cfg.AuthenticatorConfig(b.id).Name; name != "" {
		return name
	}
	return b.defaultName
}

// Description returns the backend description.
func (b UnsupportedBackend) Description() string { return b.description }

func (b UnsupportedBackend) AuthenticateCredential(ctx context.Context, loginID, secret string) (*models.User, error) {
	return nil, nil
}

func (b UnsupportedBackend) CreateIdentity(user *models.User, loginID string) *models.Identity {
	return nil
}

func (b UnsupportedBackend) CreateUser(ctx context.Context, loginID string) (*models.User, error) {
	return nil, nil
}

func (b UnsupportedBackend) MatchUser(ctx context.Context, criteria map[string]string, exact bool) ([]*models.User, error) {
	return nil, nil
}

func (b UnsupportedBackend) MatchUserFirstLetter(ctx context.Context, index, letter string) ([]*models.User, error) {
	return nil, nil
}

func (b UnsupportedBackend) SearchUserByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}

func (b UnsupportedBackend) MatchGroup(ctx context.Context, criteria map[string]string, exact bool) ([]*models.Group, error) {
	return nil, nil
}

func (b UnsupportedBackend) MatchGroupFirstLetter(ctx context.Context, letter string) ([]*models.Group, error) {
	return nil, nil
}

func (b UnsupportedBackend) GetGroupMemberList(ctx context.Context, group string) ([]string, error) {
	return nil, nil
}

func (b UnsupportedBackend) IsUserInGroup(ctx context.Context, user, group string) (bool, error) {
	return false, nil
}

// SupportsSSOLogin reads the per-backend SSOActive flag.
func (b UnsupportedBackend) SupportsSSOLogin() bool {
	return b.cfg.AuthenticatorConfig(b.id).SSOActive
}

// CanAutoActivateUsers defaults to false: users need manual activation
// unless the backend says otherwise.
func (b UnsupportedBackend) CanAutoActivateUsers() bool { return false }
