package store

import (
	"fmt"
	"testing"

	"github.com/TCH93/Indico-Dev/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestStore opens a uniquely named in-memory SQLite database so tests
// stay isolated while GORM's pool may open several connections.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	s, err := New("sqlite", dsn, "test-admin-password")
	require.NoError(t, err)
	return s
}

func makeTestUser(t *testing.T, s *Store) *models.User {
	t.Helper()
	u := &models.User{
		ID:        uuid.New().String(),
		Email:     uuid.New().String() + "@example.com",
		FirstName: "Test",
		Surname:   "User",
		Activated: true,
	}
	require.NoError(t, s.CreateUser(u))
	return u
}

func TestCreateIdentityRejectsDuplicates(t *testing.T) {
	s := setupTestStore(t)
	u := makeTestUser(t, s)

	first := &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "jdoe",
		UserID:          u.ID,
	}
	require.NoError(t, s.CreateIdentity(first))

	dup := &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "jdoe",
		UserID:          u.ID,
	}
	err := s.CreateIdentity(dup)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	// Same login under a different backend is a different key.
	other := &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "httpdir",
		LoginID:         "jdoe",
		UserID:          u.ID,
	}
	assert.NoError(t, s.CreateIdentity(other))
}

// A losing concurrent insert skips past the count probe and lands on the
// unique index; the translated gorm.ErrDuplicatedKey must come back as
// ErrDuplicateIdentity just like a probe hit would.
func TestUniqueIndexBacksDuplicateDetection(t *testing.T) {
	s := setupTestStore(t)
	u := makeTestUser(t, s)

	require.NoError(t, s.CreateIdentity(&models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "raced",
		UserID:          u.ID,
	}))

	err := s.db.Create(&models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "raced",
		UserID:          u.ID,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestGetDialector(t *testing.T) {
	_, err := GetDialector("sqlite", "file::memory:")
	assert.NoError(t, err)

	_, err = GetDialector("mysql", "dsn")
	assert.Error(t, err)
}

func TestGetIdentityNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetIdentity("local", "nobody")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	ok, err := s.HasIdentity("local", "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetIdentityByUser(t *testing.T) {
	s := setupTestStore(t)
	u := makeTestUser(t, s)

	_, err := s.GetIdentityByUser(u.ID, "local")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	identity := &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "owner-login",
		UserID:          u.ID,
	}
	require.NoError(t, s.CreateIdentity(identity))

	got, err := s.GetIdentityByUser(u.ID, "local")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)
}

func TestFindUsersExactAndSubstring(t *testing.T) {
	s := setupTestStore(t)

	alice := &models.User{
		ID:        uuid.New().String(),
		Email:     "alice@cern.ch",
		FirstName: "Alice",
		Surname:   "Anderson",
		Activated: true,
	}
	require.NoError(t, s.CreateUser(alice))

	exact, err := s.FindUsers(map[string]string{"email": "alice@cern.ch"}, true, true, true)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, alice.ID, exact[0].ID)

	// Case-sensitive: a different-cased email does not match.
	miss, err := s.FindUsers(map[string]string{"email": "Alice@cern.ch"}, true, true, true)
	require.NoError(t, err)
	assert.Empty(t, miss)

	sub, err := s.FindUsers(map[string]string{"surName": "Ander"}, false, true, true)
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, alice.ID, sub[0].ID)

	_, err = s.FindUsers(map[string]string{"password_hash": "x"}, true, true, true)
	assert.Error(t, err)
}

func TestFindUsersActivationAndIdentityFilters(t *testing.T) {
	s := setupTestStore(t)

	inactive := &models.User{
		ID:      uuid.New().String(),
		Email:   "pending@example.com",
		Surname: "Pending",
	}
	require.NoError(t, s.CreateUser(inactive))

	// Hidden from the default search...
	found, err := s.FindUsers(map[string]string{"email": "pending@example.com"}, true, false, true)
	require.NoError(t, err)
	assert.Empty(t, found)

	// ...but visible when inactive users are included.
	found, err = s.FindUsers(map[string]string{"email": "pending@example.com"}, true, true, true)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// No identity yet, so the identity-holding filter hides it.
	found, err = s.FindUsers(map[string]string{"email": "pending@example.com"}, true, true, false)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.CreateIdentity(&models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "pending",
		UserID:          inactive.ID,
	}))
	found, err = s.FindUsers(map[string]string{"email": "pending@example.com"}, true, true, false)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestAuthenticatorDataClearAndRewrite(t *testing.T) {
	s := setupTestStore(t)
	u := makeTestUser(t, s)

	require.NoError(t, s.SetAuthenticatorData(u.ID, models.FieldPhone, "12345"))
	require.NoError(t, s.SetAuthenticatorData(u.ID, models.FieldFax, "67890"))

	data, err := s.GetAuthenticatorData(u.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		models.FieldPhone: "12345",
		models.FieldFax:   "67890",
	}, data)

	// Replacing a field keeps a single row per field.
	require.NoError(t, s.SetAuthenticatorData(u.ID, models.FieldPhone, "54321"))
	data, err = s.GetAuthenticatorData(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "54321", data[models.FieldPhone])

	require.NoError(t, s.ClearAuthenticatorData(u.ID))
	data, err = s.GetAuthenticatorData(u.ID)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReindexAndFirstLetterSearch(t *testing.T) {
	s := setupTestStore(t)

	bella := &models.User{
		ID:        uuid.New().String(),
		Email:     "bella@example.com",
		FirstName: "Bella",
		Surname:   "Brown",
		Activated: true,
	}
	require.NoError(t, s.CreateUser(bella))
	require.NoError(t, s.ReindexUser(bella))

	users, err := s.FindUsersByFirstLetter("surName", "B")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bella.ID, users[0].ID)

	users, err = s.FindUsersByFirstLetter("name", "X")
	require.NoError(t, err)
	assert.Empty(t, users)

	// Surname change plus reindex moves the entry.
	bella.Surname = "Clark"
	require.NoError(t, s.SaveUser(bella))
	require.NoError(t, s.ReindexUser(bella))

	users, err = s.FindUsersByFirstLetter("surName", "B")
	require.NoError(t, err)
	assert.Empty(t, users)
	users, err = s.FindUsersByFirstLetter("surName", "C")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	u := makeTestUser(t, s)

	err := s.Transaction(func(tx *Store) error {
		if err := tx.SetAuthenticatorData(u.ID, models.FieldPhone, "999"); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	data, err := s.GetAuthenticatorData(u.ID)
	require.NoError(t, err)
	assert.Empty(t, data)
}
