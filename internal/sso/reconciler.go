package sso

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/TCH93/Indico-Dev/internal/auth"
	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/models"
	"github.com/TCH93/Indico-Dev/internal/store"

	"github.com/google/uuid"
)

// personIDAbsent is the sentinel some identity providers assert when no
// person id exists; it is normalized to "not asserted".
const personIDAbsent = "-1"

// assertion is the extracted view of an SSO attribute map.
type assertion struct {
	email     string
	login     string
	personID  string
	phone     string
	fax       string
	lastname  string
	firstname string
	institute string
}

// Reconciler consumes externally asserted attributes for one SSO-active
// backend: it resolves or provisions the local user, merges synced fields
// and guarantees a linked identity record exists. Credential verification
// is bypassed entirely; the front end asserting the attributes is trusted.
//
// Email matching deliberately spans every backend's users: the deployment
// model is one shared user directory, so a user created under one backend
// may be reconciled by another backend's SSO login.
type Reconciler struct {
	registry *auth.Registry
	store    *store.Store
	cfg      *config.Config
	metrics  core.Recorder
}

// NewReconciler builds the reconciler for the given backend registry.
func NewReconciler(registry *auth.Registry, s *store.Store, cfg *config.Config, m core.Recorder) *Reconciler {
	return &Reconciler{registry: registry, store: s, cfg: cfg, metrics: m}
}

// RetrieveAvatar resolves the user an assertion belongs to, creating and
// activating one when the email is unknown, then links the login to the user
// idempotently. The whole call runs in one transaction: any failure aborts
// with no partial field sync and no partial linking observable.
func (r *Reconciler) RetrieveAvatar(
	ctx context.Context,
	attributes map[string]string,
) (*models.User, error) {
	backendCfg := r.cfg.AuthenticatorConfig(r.registry.ID())

	email, ok := attributes[backendCfg.SourceKey("email")]
	if !ok || email == "" {
		r.metrics.RecordSSOLogin(r.registry.ID(), "missing_field")
		return nil, fmt.Errorf("%w: email", ErrMissingAssertionField)
	}

	a := assertion{
		email:     email,
		login:     models.NormalizeLogin(attributes[backendCfg.SourceKey("login")]),
		personID:  attributes[backendCfg.SourceKey("personId")],
		phone:     attributes[backendCfg.SourceKey("phone")],
		fax:       attributes[backendCfg.SourceKey("fax")],
		lastname:  attributes[backendCfg.SourceKey("lastname")],
		firstname: attributes[backendCfg.SourceKey("firstname")],
		institute: attributes[backendCfg.SourceKey("institute")],
	}
	if a.personID == personIDAbsent {
		a.personID = ""
	}

	var user *models.User
	err := r.store.Transaction(func(tx *store.Store) error {
		var err error
		user, err = r.reconcile(ctx, tx, a)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrAccountDisabled) {
			r.metrics.RecordSSOLogin(r.registry.ID(), "disabled")
		} else {
			r.metrics.RecordSSOLogin(r.registry.ID(), "error")
		}
		return nil, err
	}

	r.metrics.RecordSSOLogin(r.registry.ID(), "success")
	return user, nil
}

// reconcile runs the single-pass algorithm inside one transaction.
func (r *Reconciler) reconcile(ctx context.Context, tx *store.Store, a assertion) (*models.User, error) {
	// Exact, case-sensitive email match across all users: activation state
	// and existing password identities do not narrow the search.
	matches, err := tx.FindUsers(map[string]string{"email": a.email}, true, true, true)
	if err != nil {
		return nil, err
	}

	var user *models.User
	if len(matches) > 0 {
		user = matches[0]

		// don't allow disabled accounts
		if user.Disabled {
			return nil, ErrAccountDisabled
		}
		if !user.Activated {
			user.Activated = true
		}

		if err := r.syncUser(tx, user, a); err != nil {
			return nil, err
		}
	} else {
		user = &models.User{
			ID:          uuid.New().String(),
			Email:       a.email,
			FirstName:   a.firstname,
			Surname:     a.lastname,
			Affiliation: a.institute,
			Phone:       a.phone,
			Login:       a.login,
			PersonID:    a.personID,
			Activated:   true, // SSO-provisioned users skip manual activation
		}
		user.MarkAllFieldsSynced()
		if err := tx.CreateUser(user); err != nil {
			return nil, err
		}
		if err := tx.ReindexUser(user); err != nil {
			return nil, err
		}
		r.metrics.RecordUserProvisioned(r.registry.ID())
		log.Printf("[SSO] provisioned user %s for backend %s", user.ID, r.registry.ID())
	}

	if err := r.postLogin(ctx, tx, a.login, user); err != nil {
		return nil, err
	}
	return user, nil
}

// syncUser rewrites the authenticator-sourced snapshot and applies the
// sync-gated field merge for an existing user.
func (r *Reconciler) syncUser(tx *store.Store, user *models.User, a assertion) error {
	// Clear-then-rewrite: the snapshot always reflects exactly the current
	// assertion, so values removed upstream never linger.
	if err := tx.ClearAuthenticatorData(user.ID); err != nil {
		return err
	}
	snapshot := map[string]string{
		models.FieldPhone:       a.phone,
		models.FieldFax:         a.fax,
		models.FieldSurname:     a.lastname,
		models.FieldFirstName:   a.firstname,
		models.FieldAffiliation: a.institute,
	}
	for field, value := range snapshot {
		if err := tx.SetAuthenticatorData(user.ID, field, value); err != nil {
			return err
		}
	}

	// A field is overwritten only when the asserted value is non-empty,
	// differs from what is stored, and the user still has the field marked
	// as synced.
	reindex := false
	if a.phone != "" && a.phone != user.Phone && user.IsFieldSynced(models.FieldPhone) {
		user.Phone = a.phone
		r.metrics.RecordFieldSync(models.FieldPhone)
	}
	if a.fax != "" && a.fax != user.Fax && user.IsFieldSynced(models.FieldFax) {
		user.Fax = a.fax
		r.metrics.RecordFieldSync(models.FieldFax)
	}
	if a.lastname != "" && a.lastname != user.Surname && user.IsFieldSynced(models.FieldSurname) {
		user.Surname = a.lastname
		reindex = true
		r.metrics.RecordFieldSync(models.FieldSurname)
	}
	if a.firstname != "" && a.firstname != user.FirstName && user.IsFieldSynced(models.FieldFirstName) {
		user.FirstName = a.firstname
		reindex = true
		r.metrics.RecordFieldSync(models.FieldFirstName)
	}
	if a.institute != "" && a.institute != user.Affiliation && user.IsFieldSynced(models.FieldAffiliation) {
		user.Affiliation = a.institute
		r.metrics.RecordFieldSync(models.FieldAffiliation)
	}

	if a.personID != "" && a.personID != user.PersonID {
		user.PersonID = a.personID
	}

	if err := tx.SaveUser(user); err != nil {
		return err
	}
	if reindex {
		return tx.ReindexUser(user)
	}
	return nil
}

// postLogin guarantees a linked identity record exists for the login. The
// step is idempotent: an already-linked login changes nothing.
func (r *Reconciler) postLogin(ctx context.Context, tx *store.Store, login string, user *models.User) error {
	if login == "" {
		return nil
	}

	registry := r.registry.WithStore(tx)

	hasKey, err := registry.HasKey(ctx, login)
	if err != nil {
		return err
	}
	if !hasKey {
		record := registry.Backend().CreateIdentity(user, login)
		if record == nil {
			return nil
		}
		if _, err := registry.Add(ctx, record); err != nil {
			return err
		}
		r.metrics.RecordIdentityLinked(r.registry.ID())
		return nil
	}

	// The record exists but may belong to nobody this backend knows about:
	// attach it to the resolved user when the user holds no identity of
	// this backend yet.
	if _, err := tx.GetIdentityByUser(user.ID, r.registry.ID()); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}

	record, err := registry.GetByID(ctx, login)
	if err != nil {
		return err
	}
	record.UserID = user.ID
	if err := tx.SaveIdentity(record); err != nil {
		return err
	}
	r.metrics.RecordIdentityLinked(r.registry.ID())
	return nil
}

// LogoutCallbackURL returns the configured redirect target used when
// terminating an SSO session, with a fixed fallback.
func (r *Reconciler) LogoutCallbackURL() string {
	if url := r.cfg.AuthenticatorConfig(r.registry.ID()).LogoutCallbackURL; url != "" {
		return url
	}
	return config.DefaultLogoutCallbackURL
}
