package models

import (
	"strings"
	"time"
)

// Syncable profile fields. These are the only fields an SSO assertion may
// overwrite, and only while the user keeps the field marked as synced.
const (
	FieldFirstName   = "firstName"
	FieldSurname     = "surName"
	FieldAffiliation = "affiliation"
	FieldPhone       = "phone"
	FieldFax         = "fax"
)

// SyncableFields lists every field that can be driven by an authenticator.
var SyncableFields = []string{
	FieldFirstName,
	FieldSurname,
	FieldAffiliation,
	FieldPhone,
	FieldFax,
}

// User is the profile record a login authenticates into. Identities reference
// it by ID; a user may hold one identity per authentication backend.
type User struct {
	ID          string `gorm:"primaryKey"`
	Email       string `gorm:"uniqueIndex;not null"` // exact, case-sensitive SSO match key
	FirstName   string
	Surname     string
	Affiliation string
	Phone       string
	Fax         string

	// PersonID is the external person identifier asserted by SSO.
	PersonID string `gorm:"index"`

	// Login records the login identifier the user was provisioned with.
	Login string

	Activated bool `gorm:"not null;default:false"`
	Disabled  bool `gorm:"not null;default:false"`

	// SyncedFields is a comma-separated list of field names that SSO may
	// overwrite. Administrators drop manually curated fields from this list,
	// after which no login ever clobbers them.
	SyncedFields string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFieldSynced reports whether SSO is allowed to overwrite the given field.
func (u *User) IsFieldSynced(field string) bool {
	for _, f := range strings.Split(u.SyncedFields, ",") {
		if strings.TrimSpace(f) == field {
			return true
		}
	}
	return false
}

// SetFieldSynced adds or removes a field from the synced set.
func (u *User) SetFieldSynced(field string, synced bool) {
	fields := []string{}
	for _, f := range strings.Split(u.SyncedFields, ",") {
		if f = strings.TrimSpace(f); f != "" && f != field {
			fields = append(fields, f)
		}
	}
	if synced {
		fields = append(fields, field)
	}
	u.SyncedFields = strings.Join(fields, ",")
}

// MarkAllFieldsSynced marks every syncable field as SSO-writable. Used when a
// user is provisioned by SSO so later assertions keep the profile current.
func (u *User) MarkAllFieldsSynced() {
	u.SyncedFields = strings.Join(SyncableFields, ",")
}

// FullName returns "FirstName Surname" with missing parts dropped.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}
