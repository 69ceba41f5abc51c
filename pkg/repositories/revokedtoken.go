package repositories

import (
	"context"
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IRevokedTokenRepository interface {
	Add(ctx context.Context, token *models.RevokedToken) error
	Exists(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type RevokedTokenRepository struct {
	db *gorm.DB
}

func NewRevokedTokenRepository(db *gorm.DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

// Add records a revocation; revoking the same token twice is not an error.
func (r *RevokedTokenRepository) Add(ctx context.Context, token *models.RevokedToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(token).Error
}

func (r *RevokedTokenRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("token_hash = ?", tokenHash).Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *RevokedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return db.RowsAffected, db.Error
}
