package models

import "time"

// RevokedToken is a logged-out bearer token, stored by the hex SHA-256 of the
// token string. It can be pruned once ExpiresAt has passed.
type RevokedToken struct {
	TokenHash string `gorm:"type:varchar(64);primarykey"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null;index:idx_revoked_tokens_expires"`
}
