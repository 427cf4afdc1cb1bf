package models

import "time"

// AuthenticatorData is one authenticator-sourced personal-data annotation: a
// snapshot of a value the last SSO assertion carried for a user. The snapshot
// is distinct from the authoritative profile fields; it is cleared and
// rewritten wholesale on every SSO login so stale upstream data never lingers.
type AuthenticatorData struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"uniqueIndex:idx_authenticator_data_user_field;not null"`
	Field  string `gorm:"uniqueIndex:idx_authenticator_data_user_field;not null"`
	Value  string

	CreatedAt time.Time
}
