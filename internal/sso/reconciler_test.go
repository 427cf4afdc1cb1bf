package sso

import (
	"context"
	"fmt"
	"testing"

	"github.com/TCH93/Indico-Dev/internal/auth"
	"github.com/TCH93/Indico-Dev/internal/config"
	"github.com/TCH93/Indico-Dev/internal/metrics"
	"github.com/TCH93/Indico-Dev/internal/models"
	"github.com/TCH93/Indico-Dev/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	s, err := store.New("sqlite", dsn, "test-admin-password")
	require.NoError(t, err)
	return s
}

func newReconciler(t *testing.T, backendCfg config.AuthenticatorConfig) (*Reconciler, *store.Store) {
	t.Helper()
	db := newTestStore(t)
	backendCfg.ID = auth.BackendLocal
	backendCfg.SSOActive = true
	cfg := &config.Config{
		Authenticators: map[string]config.AuthenticatorConfig{
			auth.BackendLocal: backendCfg,
		},
	}
	backend := auth.NewLocalBackend(db, cfg)
	registry := auth.NewRegistry(backend, db)
	return NewReconciler(registry, db, cfg, metrics.NewNoopMetrics()), db
}

func fullAssertion() map[string]string {
	return map[string]string{
		"ADFS_EMAIL":         "a@b.org",
		"ADFS_LOGIN":         "ab",
		"ADFS_PERSONID":      "42",
		"ADFS_FIRSTNAME":     "Ann",
		"ADFS_LASTNAME":      "Bell",
		"ADFS_PHONENUMBER":   "111",
		"ADFS_FAXNUMBER":     "222",
		"ADFS_HOMEINSTITUTE": "CERN",
	}
}

func TestMissingEmailAborts(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})
	a := fullAssertion()
	delete(a, "ADFS_EMAIL")

	_, err := r.RetrieveAvatar(context.Background(), a)
	assert.ErrorIs(t, err, ErrMissingAssertionField)

	// No user resolution was attempted, nothing was created.
	users, err := db.FindUsers(map[string]string{"email": "a@b.org"}, true, true, true)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestProvisionsNewUser(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})
	ctx := context.Background()

	user, err := r.RetrieveAvatar(ctx, fullAssertion())
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "a@b.org", user.Email)
	assert.Equal(t, "Ann Bell", user.FullName())
	assert.Equal(t, "42", user.PersonID)
	assert.Equal(t, "CERN", user.Affiliation)
	assert.Equal(t, "111", user.Phone)
	assert.Empty(t, user.Fax, "fax is not part of the provisioning set")
	assert.True(t, user.Activated, "SSO-provisioned users bypass manual activation")

	// Exactly one user and one linked identity record exist.
	users, err := db.FindUsers(map[string]string{"email": "a@b.org"}, true, true, true)
	require.NoError(t, err)
	require.Len(t, users, 1)

	identity, err := db.GetIdentity(auth.BackendLocal, "ab")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
}

func TestLinkingIsIdempotent(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})
	ctx := context.Background()

	first, err := r.RetrieveAvatar(ctx, fullAssertion())
	require.NoError(t, err)
	second, err := r.RetrieveAvatar(ctx, fullAssertion())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	identities, err := db.ListIdentitiesByUser(first.ID)
	require.NoError(t, err)
	assert.Len(t, identities, 1, "no duplicate identity for a repeated assertion")
}

func TestDisabledAccountRejectedUnchanged(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     "a@b.org",
		FirstName: "Old",
		Surname:   "Name",
		Phone:     "000",
		Disabled:  true,
		Activated: true,
	}
	user.MarkAllFieldsSynced()
	require.NoError(t, db.CreateUser(user))

	_, err := r.RetrieveAvatar(context.Background(), fullAssertion())
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// No field sync, no annotations, no linking happened.
	stored, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old", stored.FirstName)
	assert.Equal(t, "000", stored.Phone)

	data, err := db.GetAuthenticatorData(user.ID)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = db.GetIdentity(auth.BackendLocal, "ab")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestActivatesInactiveUser(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	user := &models.User{
		ID:    uuid.New().String(),
		Email: "a@b.org",
	}
	require.NoError(t, db.CreateUser(user))

	got, err := r.RetrieveAvatar(context.Background(), fullAssertion())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.Activated)

	stored, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Activated)
}

func TestSyncGatedFieldMerge(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     "a@b.org",
		FirstName: "Annie",
		Surname:   "Bell",
		Phone:     "555",
		Activated: true,
	}
	user.MarkAllFieldsSynced()
	user.SetFieldSynced(models.FieldPhone, false) // phone is manually curated
	require.NoError(t, db.CreateUser(user))

	got, err := r.RetrieveAvatar(context.Background(), fullAssertion())
	require.NoError(t, err)

	// Phone is protected; first name follows the assertion.
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, "Ann", got.FirstName)

	// The annotation snapshot still records the asserted phone.
	data, err := db.GetAuthenticatorData(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "111", data[models.FieldPhone])
	assert.Equal(t, "Bell", data[models.FieldSurname])
}

func TestEmptyAssertedValueNeverOverwrites(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     "a@b.org",
		Fax:       "999",
		Activated: true,
	}
	user.MarkAllFieldsSynced()
	require.NoError(t, db.CreateUser(user))

	a := fullAssertion()
	delete(a, "ADFS_FAXNUMBER")

	got, err := r.RetrieveAvatar(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "999", got.Fax)

	// The snapshot is rewritten unconditionally, even to empty.
	data, err := db.GetAuthenticatorData(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "", data[models.FieldFax])
}

func TestPersonIDSentinelNormalized(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     "a@b.org",
		PersonID:  "7",
		Activated: true,
	}
	require.NoError(t, db.CreateUser(user))

	a := fullAssertion()
	a["ADFS_PERSONID"] = "-1"

	got, err := r.RetrieveAvatar(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "7", got.PersonID, "sentinel -1 means not asserted")

	a["ADFS_PERSONID"] = "42"
	got, err = r.RetrieveAvatar(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "42", got.PersonID)
}

func TestAttachesExistingRecordToUser(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})
	ctx := context.Background()

	// A record for the login already exists, owned by another user.
	orphanOwner := &models.User{
		ID:        uuid.New().String(),
		Email:     "other@b.org",
		Activated: true,
	}
	require.NoError(t, db.CreateUser(orphanOwner))
	require.NoError(t, db.CreateIdentity(&models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: auth.BackendLocal,
		LoginID:         "ab",
		UserID:          orphanOwner.ID,
	}))

	// The asserted user exists but holds no identity for this backend.
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     "a@b.org",
		Activated: true,
	}
	require.NoError(t, db.CreateUser(user))

	got, err := r.RetrieveAvatar(ctx, fullAssertion())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	identity, err := db.GetIdentity(auth.BackendLocal, "ab")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID, "existing record attached to the resolved user")
}

func TestNoLinkWithoutLogin(t *testing.T) {
	r, db := newReconciler(t, config.AuthenticatorConfig{})

	a := fullAssertion()
	delete(a, "ADFS_LOGIN")

	user, err := r.RetrieveAvatar(context.Background(), a)
	require.NoError(t, err)

	identities, err := db.ListIdentitiesByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, identities)
}

func TestCustomSSOMapping(t *testing.T) {
	r, _ := newReconciler(t, config.AuthenticatorConfig{
		SSOMapping: map[string]string{
			"email": "X_MAIL",
			"login": "X_USER",
		},
	})

	user, err := r.RetrieveAvatar(context.Background(), map[string]string{
		"X_MAIL":         "c@d.org",
		"X_USER":         "cd",
		"ADFS_FIRSTNAME": "Cid", // unmapped fields keep their defaults
	})
	require.NoError(t, err)
	assert.Equal(t, "c@d.org", user.Email)
	assert.Equal(t, "cd", user.Login)
	assert.Equal(t, "Cid", user.FirstName)
}

func TestLogoutCallbackURL(t *testing.T) {
	r, _ := newReconciler(t, config.AuthenticatorConfig{})
	assert.Equal(t, config.DefaultLogoutCallbackURL, r.LogoutCallbackURL())

	r, _ = newReconciler(t, config.AuthenticatorConfig{
		LogoutCallbackURL: "https://sso.example.org/logout",
	})
	assert.Equal(t, "https://sso.example.org/logout", r.LogoutCallbackURL())
}
