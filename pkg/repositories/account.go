package repositories

import (
	"context"
	"errors"

	"github.com/aquaticgg/krepo/pkg/database"
	"github.com/aquaticgg/krepo/pkg/models"
	"gorm.io/gorm"
)

type IAccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	UpdateRoles(ctx context.Context, username string, roles []string) (*models.Account, error)
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]models.Account, error)
	Count(ctx context.Context) (int64, error)
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (a *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var userAccount models.Account
	db := a.db.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&userAccount)
	if _, ok := database.CheckDBForErrorOrNoRows(db); ok {
		return &userAccount, nil
	}

	if db.Error != nil {
		return nil, db.Error
	}

	return nil, ErrNotFound
}

func (a *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	err := a.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	return err
}

func (a *AccountRepository) UpdateRoles(ctx context.Context, username string, roles []string) (*models.Account, error) {
	acct, err := a.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	acct.Roles = roles
	if err := a.db.WithContext(ctx).Save(acct).Error; err != nil {
		return nil, err
	}

	return acct, nil
}

// Delete removes the account and, in the same transaction, every deploy token it owns.
func (a *AccountRepository) Delete(ctx context.Context, username string) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct models.Account
		db := tx.Where("username = ?", username).Limit(1).Find(&acct)
		if db.Error != nil {
			return db.Error
		}
		if db.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("account_id = ?", acct.ID).Delete(&models.DeployToken{}).Error; err != nil {
			return err
		}

		return tx.Delete(&acct).Error
	})
}

func (a *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := a.db.WithContext(ctx).Order("username").Find(&accounts).Error; err != nil {
		return nil, err
	}

	return accounts, nil
}

func (a *AccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.Account{}).Count(&count).Error
	return count, err
}
