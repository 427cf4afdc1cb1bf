package models

import "time"

// UserIndexEntry is the denormalized name search index row for a user.
// Name or surname changes reindex the entry in the same transaction.
type UserIndexEntry struct {
	UserID    string `gorm:"primaryKey"`
	FirstName string `gorm:"index"`
	Surname   string `gorm:"index"`

	UpdatedAt time.Time
}
