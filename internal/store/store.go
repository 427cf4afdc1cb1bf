package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/TCH93/Indico-Dev/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the database handle. All registry and reconciliation state
// lives here; in-memory callers never hold raw rows across transactions.
type Store struct {
	db *gorm.DB
}

// New opens the database, runs migrations and seeds the default admin user.
func New(driver, dsn string, seedAdminPassword string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which CreateIdentity relies on under
	// concurrency.
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Identity{},
		&models.AuthenticatorData{},
		&models.UserIndexEntry{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	if err := store.seedData(seedAdminPassword); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// Transaction runs fn against a store bound to a single transaction.
// Returning an error rolls everything back, so multi-step operations leave
// no partial state behind.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

func (s *Store) seedData(adminPassword string) error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount > 0 {
		return nil
	}

	password := adminPassword
	if password == "" {
		var err error
		password, err = generateRandomPassword(16)
		if err != nil {
			return err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		ID:        uuid.New().String(),
		Email:     "admin@localhost",
		FirstName: "Default",
		Surname:   "Admin",
		Login:     "admin",
		Activated: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}
	identity := &models.Identity{
		ID:              uuid.New().String(),
		AuthenticatorID: "local",
		LoginID:         "admin",
		UserID:          admin.ID,
		PasswordHash:    string(hash),
	}
	if err := s.db.Create(identity).Error; err != nil {
		return err
	}
	log.Printf("Created default user: admin / %s", password)
	return nil
}

// User operations

func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

func (s *Store) SaveUser(user *models.User) error {
	return s.db.Save(user).Error
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// criteriaColumns maps search criteria keys to user table columns. Unknown
// keys are rejected so callers cannot smuggle arbitrary column filters.
var criteriaColumns = map[string]string{
	"email":       "email",
	"name":        "first_name",
	"surName":     "surname",
	"affiliation": "affiliation",
	"login":       "login",
	"personId":    "person_id",
}

// FindUsers returns users matching the criteria mapping. Matching is
// case-sensitive; exact selects equality over substring match. When
// includeInactive is false, non-activated users are filtered out; when
// includeNoLocalIdentity is false, only users holding at least one identity
// are returned.
func (s *Store) FindUsers(
	criteria map[string]string,
	exact bool,
	includeInactive bool,
	includeNoLocalIdentity bool,
) ([]*models.User, error) {
	q := s.db.Model(&models.User{})

	for key, value := range criteria {
		column, ok := criteriaColumns[key]
		if !ok {
			return nil, fmt.Errorf("unknown search criterion: %s", key)
		}
		if exact {
			q = q.Where(fmt.Sprintf("%s = ?", column), value)
		} else {
			q = q.Where(fmt.Sprintf("%s LIKE ?", column), "%"+value+"%")
		}
	}

	if !includeInactive {
		q = q.Where("activated = ?", true)
	}
	if !includeNoLocalIdentity {
		q = q.Where("id IN (?)", s.db.Model(&models.Identity{}).Select("user_id"))
	}

	var users []*models.User
	if err := q.Order("surname, first_name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindUsersByFirstLetter returns users whose indexed name field starts with
// the given letter, via the denormalized search index.
func (s *Store) FindUsersByFirstLetter(index, letter string) ([]*models.User, error) {
	column := "surname"
	if index == "name" {
		column = "first_name"
	}

	var users []*models.User
	err := s.db.Model(&models.User{}).
		Where("id IN (?)", s.db.Model(&models.UserIndexEntry{}).
			Select("user_id").
			Where(fmt.Sprintf("%s LIKE ?", column), letter+"%")).
		Order("surname, first_name").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ReindexUser refreshes the user's search index entry. Called whenever a
// name or surname changes, inside the same transaction as the change.
func (s *Store) ReindexUser(user *models.User) error {
	entry := &models.UserIndexEntry{
		UserID:    user.ID,
		FirstName: user.FirstName,
		Surname:   user.Surname,
	}
	return s.db.Save(entry).Error
}

// Identity operations

// CreateIdentity inserts a new identity with atomic check-and-insert
// semantics: the uniqueness probe and the insert run in one transaction, so
// concurrent adds of the same login surface as ErrDuplicateIdentity rather
// than corrupting the registry.
func (s *Store) CreateIdentity(identity *models.Identity) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Identity{}).
			Where("authenticator_id = ? AND login_id = ?", identity.AuthenticatorID, identity.LoginID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateIdentity
		}
		if err := tx.Create(identity).Error; err != nil {
			// The unique index is the arbiter under concurrency; map its
			// violation onto the same sentinel the probe uses.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateIdentity
			}
			return err
		}
		return nil
	})
}

func (s *Store) GetIdentity(authenticatorID, loginID string) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.
		Where("authenticator_id = ? AND login_id = ?", authenticatorID, loginID).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (s *Store) HasIdentity(authenticatorID, loginID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Identity{}).
		Where("authenticator_id = ? AND login_id = ?", authenticatorID, loginID).
		Count(&count).Error
	return count > 0, err
}

// GetIdentityByUser returns the user's identity for the given backend, or
// ErrRecordNotFound when the user holds none.
func (s *Store) GetIdentityByUser(userID, authenticatorID string) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.
		Where("user_id = ? AND authenticator_id = ?", userID, authenticatorID).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (s *Store) ListIdentitiesByUser(userID string) ([]*models.Identity, error) {
	var identities []*models.Identity
	if err := s.db.Where("user_id = ?", userID).Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}

// SaveIdentity persists identity mutations. The only mutation this core
// performs is re-linking an existing record to a user during SSO.
func (s *Store) SaveIdentity(identity *models.Identity) error {
	return s.db.Save(identity).Error
}

// Authenticator-sourced personal data snapshot

// ClearAuthenticatorData drops every annotation recorded for the user.
func (s *Store) ClearAuthenticatorData(userID string) error {
	return s.db.
		Where("user_id = ?", userID).
		Delete(&models.AuthenticatorData{}).Error
}

// SetAuthenticatorData records one annotation, replacing any previous value
// for the same field.
func (s *Store) SetAuthenticatorData(userID, field, value string) error {
	err := s.db.
		Where("user_id = ? AND field = ?", userID, field).
		Delete(&models.AuthenticatorData{}).Error
	if err != nil {
		return err
	}
	return s.db.Create(&models.AuthenticatorData{
		UserID: userID,
		Field:  field,
		Value:  value,
	}).Error
}

// GetAuthenticatorData returns the user's annotations keyed by field.
func (s *Store) GetAuthenticatorData(userID string) (map[string]string, error) {
	var rows []models.AuthenticatorData
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	data := make(map[string]string, len(rows))
	for _, row := range rows {
		data[row.Field] = row.Value
	}
	return data, nil
}
