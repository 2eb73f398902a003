package repository

import (
	"errors"

	"github.com/cardledger/internal/models"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryRepository handles category data access
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(category *models.Category) error {
	return translateError(r.db.Create(category).Error)
}

// GetByIDAndUserID retrieves a category by ID scoped to its owner
func (r *CategoryRepository) GetByIDAndUserID(id, userID uint) (*models.Category, error) {
	var category models.Category
	result := r.db.Where("id = ? AND user_id = ?", id, userID).First(&category)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, result.Error
	}
	return &category, nil
}

// GetByUserID retrieves all categories for a user, oldest first
func (r *CategoryRepository) GetByUserID(userID uint) ([]models.Category, error) {
	categories := []models.Category{}
	result := r.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&categories)
	return categories, result.Error
}

// Rename changes the name of a category owned by userID
func (r *CategoryRepository) Rename(category *models.Category, name string) error {
	result := r.db.Model(&models.Category{}).
		Where("id = ? AND user_id = ?", category.ID, category.UserID).
		Update("name", name)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	category.Name = name
	return nil
}

// DeleteDetached unlinks every usage from the category and then deletes it,
// atomically. Usages themselves are never deleted.
func (r *CategoryRepository) DeleteDetached(id, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		if err := tx.Model(&models.Usage{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Category{}, category.ID).Error
	})
}
