package repository

import (
	"errors"
	"time"

	"github.com/cardledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUsageNotFound = errors.New("usage not found")
)

// UsageFilter scopes usage queries to one owner and, optionally, a
// half-open [From, To) window on used_at
type UsageFilter struct {
	UserID uint
	From   time.Time
	To     time.Time
}

// UsageRepository handles usage data access
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new UsageRepository
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) scoped(filter UsageFilter) *gorm.DB {
	query := r.db.Model(&models.Usage{}).Where("user_id = ?", filter.UserID)
	if !filter.From.IsZero() {
		query = query.Where("used_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("used_at < ?", filter.To)
	}
	return query
}

// Create creates a new usage
func (r *UsageRepository) Create(usage *models.Usage) error {
	return r.db.Omit(clause.Associations).Create(usage).Error
}

// GetByIDAndUserID retrieves a usage by ID scoped to its owner, with its category
func (r *UsageRepository) GetByIDAndUserID(id, userID uint) (*models.Usage, error) {
	var usage models.Usage
	result := r.db.Preload("Category").Where("id = ? AND user_id = ?", id, userID).First(&usage)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUsageNotFound
		}
		return nil, result.Error
	}
	return &usage, nil
}

// Update saves every column of the usage
func (r *UsageRepository) Update(usage *models.Usage) error {
	return r.db.Omit(clause.Associations).Save(usage).Error
}

// Delete permanently deletes a usage owned by userID
func (r *UsageRepository) Delete(id, userID uint) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Usage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUsageNotFound
	}
	return nil
}

// FindPage retrieves one page of usages ordered by used_at
func (r *UsageRepository) FindPage(filter UsageFilter, page, pageSize int) ([]models.Usage, error) {
	usages := []models.Usage{}
	offset := (page - 1) * pageSize
	result := r.scoped(filter).
		Preload("Category").
		Order("used_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&usages)
	return usages, result.Error
}

// FindAll retrieves every usage matching the filter ordered by used_at
func (r *UsageRepository) FindAll(filter UsageFilter) ([]models.Usage, error) {
	usages := []models.Usage{}
	result := r.scoped(filter).
		Preload("Category").
		Order("used_at ASC").
		Order("id ASC").
		Find(&usages)
	return usages, result.Error
}

// Count counts usages matching the filter
func (r *UsageRepository) Count(filter UsageFilter) (int64, error) {
	var count int64
	err := r.scoped(filter).Count(&count).Error
	return count, err
}

// SumAmount sums non-null amounts matching the filter; 0 when none.
// SQLite keeps decimal columns as REAL, so its rows are added up here
// instead of by SUM.
func (r *UsageRepository) SumAmount(filter UsageFilter) (decimal.Decimal, error) {
	if r.db.Dialector.Name() == "sqlite" {
		return r.sumInGo(filter)
	}

	var total struct {
		Sum decimal.NullDecimal
	}
	err := r.scoped(filter).
		Select("COALESCE(SUM(amount), 0) AS sum").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Sum.Valid {
		return decimal.Zero, nil
	}
	return total.Sum.Decimal, nil
}

func (r *UsageRepository) sumInGo(filter UsageFilter) (decimal.Decimal, error) {
	var amounts []decimal.NullDecimal
	err := r.scoped(filter).
		Where("amount IS NOT NULL").
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, a := range amounts {
		if a.Valid {
			sum = sum.Add(a.Decimal)
		}
	}
	return sum, nil
}
