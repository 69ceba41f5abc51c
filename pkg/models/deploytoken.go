package models

import "time"

const (
	PermissionRead  = "READ"
	PermissionWrite = "WRITE"
)

// DeployToken is a permission-scoped secret for automation. Only the bcrypt hash of
// the raw secret is stored; the owner is referenced by an explicit foreign key.
type DeployToken struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	AccountID   uint      `gorm:"not null;uniqueIndex:idx_deploy_tokens_owner_name" json:"-"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_deploy_tokens_owner_name" json:"name"`
	TokenHash   string    `gorm:"not null" json:"-"`
	Permissions []string  `gorm:"serializer:json;not null" json:"permissions"`
}

func (t *DeployToken) HasPermission(permission string) bool {
	for _, p := range t.Permissions {
		if p == permission {
			return true
		}
	}

	return false
}
