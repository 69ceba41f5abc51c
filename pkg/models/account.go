package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account is a registered principal. Rows are hard-deleted so a removed account
// cannot authenticate again, and the username is the natural key used by every lookup.
type Account struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string   `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string   `gorm:"not null"`
	Roles        []string `gorm:"serializer:json;not null"`
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}

	return false
}

func (a *Account) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}
