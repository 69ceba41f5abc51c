package responses

import (
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
)

// Token carries a raw deploy token secret. It is only ever sent on create and reset.
type Token struct {
	ID          uint      `json:"id,omitempty"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Token       string    `json:"token"`
}

func NewToken(t *models.DeployToken, secret string) *Token {
	return &Token{
		ID:          t.ID,
		Name:        t.Name,
		Permissions: t.Permissions,
		CreatedAt:   t.CreatedAt,
		Token:       secret,
	}
}

type Artifact struct {
	Repository string `json:"repository"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
}

type Usage struct {
	Bytes int64 `json:"bytes"`
}

type Health struct {
	Status string `json:"status"`
}
