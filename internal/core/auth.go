package core

import (
	"context"

	"github.com/TCH93/Indico-Dev/internal/models"
)

// Authenticator is the capability contract every authentication backend
// implements. Most operations are optional: a backend that does not support
// one signals it with a nil/empty result, never with an error. Callers must
// treat nil as "unsupported or no match", not as a failure.
//
// Embed auth.UnsupportedBackend to pick up neutral defaults and override
// only the operations the backend actually supports.
type Authenticator interface {
	// ID returns the stable backend identifier matching configuration.
	ID() string

	// DisplayName returns the configured name, falling back to the
	// backend's own default.
	DisplayName() string

	// Description returns a human-readable backend description.
	Description() string

	// AuthenticateCredential verifies a credential and returns the owning
	// user. It returns (nil, nil) for a bad credential or unknown login so
	// callers cannot distinguish which identities exist.
	AuthenticateCredential(ctx context.Context, loginID, secret string) (*models.User, error)

	// CreateIdentity builds a new unlinked identity for a user. The secret
	// treatment (hashing) is backend-defined.
	CreateIdentity(user *models.User, loginID string) *models.Identity

	// CreateUser provisions a user from a login alone. Directory-backed
	// backends implement this; others return (nil, nil).
	CreateUser(ctx context.Context, loginID string) (*models.User, error)

	// MatchUser returns users matching the criteria mapping.
	MatchUser(ctx context.Context, criteria map[string]string, exact bool) ([]*models.User, error)

	// MatchUserFirstLetter returns users whose indexed field starts with
	// the given letter.
	MatchUserFirstLetter(ctx context.Context, index, letter string) ([]*models.User, error)

	// SearchUserByID returns the user with the given id, or nil.
	SearchUserByID(ctx context.Context, id string) (*models.User, error)

	// MatchGroup returns directory groups matching the criteria.
	MatchGroup(ctx context.Context, criteria map[string]string, exact bool) ([]*models.Group, error)

	// MatchGroupFirstLetter returns groups starting with the given letter.
	MatchGroupFirstLetter(ctx context.Context, letter string) ([]*models.Group, error)

	// GetGroupMemberList returns the member logins of a group.
	GetGroupMemberList(ctx context.Context, group string) ([]string, error)

	// IsUserInGroup reports group membership. Defaults to false.
	IsUserInGroup(ctx context.Context, user, group string) (bool, error)

	// SupportsSSOLogin reports whether SSO is active for this backend.
	SupportsSSOLogin() bool

	// CanAutoActivateUsers reports whether users created by this backend
	// are activated without a manual step.
	CanAutoActivateUsers() bool
}
