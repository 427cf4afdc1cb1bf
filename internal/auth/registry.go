package auth

import (
	"context"
	"errors"

	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/models"
	"github.com/TCH93/Indico-Dev/internal/store"
)

// Registry is the per-backend collection of identity records, keyed by login
// id. The index lives in the database so check-and-insert is transactional;
// the registry itself holds no mutable state and is safe for concurrent use.
//
// One registry exists per configured backend id, constructed at startup and
// injected into call sites.
type Registry struct {
	backend core.Authenticator
	store   *store.Store
}

// NewRegistry builds the registry for one backend.
func NewRegistry(backend core.Authenticator, s *store.Store) *Registry {
	return &Registry{backend: backend, store: s}
}

// ID returns the backend id this registry serves.
func (r *Registry) ID() string { return r.backend.ID() }

// Backend returns the backend the registry delegates verification to.
func (r *Registry) Backend() core.Authenticator { return r.backend }

// Add inserts a new identity record and returns its login id. The record is
// stamped with this registry's backend id; insertion fails with
// ErrDuplicateIdentity when the login id is already present. Insertion is
// the only mutation of the index, keys are never updated in place.
func (r *Registry) Add(ctx context.Context, record *models.Identity) (string, error) {
	record.AuthenticatorID = r.ID()
	record.LoginID = models.NormalizeLogin(record.LoginID)

	if err := r.store.CreateIdentity(record); err != nil {
		if errors.Is(err, store.ErrDuplicateIdentity) {
			return "", ErrDuplicateIdentity
		}
		return "", err
	}
	return record.LoginID, nil
}

// HasKey reports whether a record exists for the login id.
func (r *Registry) HasKey(ctx context.Context, loginID string) (bool, error) {
	return r.store.HasIdentity(r.ID(), models.NormalizeLogin(loginID))
}

// GetByID returns the identity record for a login id, or ErrIdentityNotFound.
func (r *Registry) GetByID(ctx context.Context, loginID string) (*models.Identity, error) {
	identity, err := r.store.GetIdentity(r.ID(), models.NormalizeLogin(loginID))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return identity, nil
}

// GetAvatar locates the identity record and delegates credential
// verification to the backend. An absent login or a bad credential both
// yield (nil, nil): the caller learns nothing about which identities exist.
func (r *Registry) GetAvatar(ctx context.Context, loginID, secret string) (*models.User, error) {
	ok, err := r.HasKey(ctx, loginID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return r.backend.AuthenticateCredential(ctx, loginID, secret)
}

// GetAvatarByLogin returns the owning user WITHOUT any credential check, and
// fails with ErrIdentityNotFound when the login is unknown. Only trusted
// contexts (post-SSO linking, admin lookup) may use this path.
func (r *Registry) GetAvatarByLogin(ctx context.Context, loginID string) (*models.User, error) {
	identity, err := r.GetByID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	user, err := r.store.GetUserByID(identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

// WithStore returns a registry bound to another store handle, used inside
// transactions so linking observes its own writes.
func (r *Registry) WithStore(s *store.Store) *Registry {
	return &Registry{backend: r.backend, store: s}
}
