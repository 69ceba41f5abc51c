package repositories

import (
	"context"

	"github.com/aquaticgg/krepo/pkg/database"
	"github.com/aquaticgg/krepo/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IRepoRepository interface {
	Get(ctx context.Context, name string) (*models.Repository, error)
	EnsureExists(ctx context.Context, name string) (bool, error)
	SetVisibility(ctx context.Context, name string, visibility models.Visibility) error
	List(ctx context.Context) ([]models.Repository, error)
}

type RepoRepository struct {
	db *gorm.DB
}

func NewRepoRepository(db *gorm.DB) *RepoRepository {
	return &RepoRepository{db: db}
}

func (rp *RepoRepository) Get(ctx context.Context, name string) (*models.Repository, error) {
	var repo models.Repository
	db := rp.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&repo)
	if _, ok := database.CheckDBForErrorOrNoRows(db); ok {
		return &repo, nil
	}

	if db.Error != nil {
		return nil, db.Error
	}

	return nil, ErrNotFound
}

// EnsureExists creates a PUBLIC repository record unless one already exists and
// reports whether it created it. Concurrent first writes are safe.
func (rp *RepoRepository) EnsureExists(ctx context.Context, name string) (bool, error) {
	db := rp.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Repository{
		Name:       name,
		Visibility: models.VisibilityPublic,
	})
	if db.Error != nil {
		return false, db.Error
	}

	return db.RowsAffected > 0, nil
}

func (rp *RepoRepository) SetVisibility(ctx context.Context, name string, visibility models.Visibility) error {
	db := rp.db.WithContext(ctx).Model(&models.Repository{}).Where("name = ?", name).Update("visibility", visibility)
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (rp *RepoRepository) List(ctx context.Context) ([]models.Repository, error) {
	var repos []models.Repository
	if err := rp.db.WithContext(ctx).Order("name").Find(&repos).Error; err != nil {
		return nil, err
	}

	return repos, nil
}
