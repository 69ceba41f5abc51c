package repositories

import (
	"context"
	"errors"

	"github.com/aquaticgg/krepo/pkg/database"
	"github.com/aquaticgg/krepo/pkg/models"
	"gorm.io/gorm"
)

type IDeployTokenRepository interface {
	ListByOwner(ctx context.Context, accountID uint) ([]models.DeployToken, error)
	GetByOwnerAndName(ctx context.Context, accountID uint, name string) (*models.DeployToken, error)
	Create(ctx context.Context, token *models.DeployToken) error
	UpdateHash(ctx context.Context, id uint, tokenHash string) error
	DeleteOwned(ctx context.Context, accountID uint, id uint) (bool, error)
}

type DeployTokenRepository struct {
	db *gorm.DB
}

func NewDeployTokenRepository(db *gorm.DB) *DeployTokenRepository {
	return &DeployTokenRepository{db: db}
}

func (d *DeployTokenRepository) ListByOwner(ctx context.Context, accountID uint) ([]models.DeployToken, error) {
	var tokens []models.DeployToken
	err := d.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&tokens).Error
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

func (d *DeployTokenRepository) GetByOwnerAndName(ctx context.Context, accountID uint, name string) (*models.DeployToken, error) {
	var token models.DeployToken
	db := d.db.WithContext(ctx).Where("account_id = ? AND name = ?", accountID, name).Limit(1).Find(&token)
	if _, ok := database.CheckDBForErrorOrNoRows(db); ok {
		return &token, nil
	}

	if db.Error != nil {
		return nil, db.Error
	}

	return nil, ErrNotFound
}

func (d *DeployTokenRepository) Create(ctx context.Context, token *models.DeployToken) error {
	err := d.db.WithContext(ctx).Create(token).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	return err
}

func (d *DeployTokenRepository) UpdateHash(ctx context.Context, id uint, tokenHash string) error {
	db := d.db.WithContext(ctx).Model(&models.DeployToken{}).Where("id = ?", id).Update("token_hash", tokenHash)
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteOwned deletes the token only when it belongs to accountID and reports whether a row went away.
func (d *DeployTokenRepository) DeleteOwned(ctx context.Context, accountID uint, id uint) (bool, error) {
	db := d.db.WithContext(ctx).Where("id = ? AND account_id = ?", id, accountID).Delete(&models.DeployToken{})
	if db.Error != nil {
		return false, db.Error
	}

	return db.RowsAffected > 0, nil
}
