package models

import (
	"fmt"
	"strings"
	"time"
)

type Visibility string

const (
	// VisibilityPublic repositories can be read by anyone.
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilityPrivate repositories can only be read by authenticated callers.
	VisibilityPrivate Visibility = "PRIVATE"
	// VisibilityHidden repositories are readable like public ones but never listed.
	VisibilityHidden Visibility = "HIDDEN"
)

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToUpper(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityPrivate, VisibilityHidden:
		return v, nil
	}

	return "", fmt.Errorf("unknown visibility %q", s)
}

// Repository is a named content container. The name is its sole identity.
type Repository struct {
	Name       string     `gorm:"type:varchar(255);primarykey" json:"name"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:PUBLIC" json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
