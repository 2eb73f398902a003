package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cardledger/internal/models"
	"github.com/cardledger/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// amountScale is the number of decimal places an amount column keeps
const amountScale = 2

// UsageService is the expense ledger: CRUD, monthly listing and export
type UsageService struct {
	usageRepo  *repository.UsageRepository
	categories *CategoryService
	location   *time.Location
	pageSize   int
}

// NewUsageService creates a new UsageService. Month windows and plain dates
// are interpreted in loc.
func NewUsageService(
	usageRepo *repository.UsageRepository,
	categories *CategoryService,
	loc *time.Location,
	pageSize int,
) *UsageService {
	if loc == nil {
		loc = time.Local
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &UsageService{
		usageRepo:  usageRepo,
		categories: categories,
		location:   loc,
		pageSize:   pageSize,
	}
}

// UsageRequest is the body of create and update requests
type UsageRequest struct {
	UsedAt     string              `json:"usedAt"`
	Merchant   string              `json:"merchant"`
	Amount     decimal.NullDecimal `json:"amount"`
	Purpose    string              `json:"purpose"`
	Memo       *string             `json:"memo"`
	CategoryID *uint               `json:"categoryId"`
}

// ListQuery selects one page, optionally limited to one calendar month.
// The month filter applies only when both Year and Month are non-zero.
type ListQuery struct {
	Page  int
	Year  int
	Month int
}

// UsagePage is one page of a listing plus totals over the whole filtered set
type UsagePage struct {
	Items       []models.Usage
	Total       int64
	TotalAmount decimal.Decimal
	Page        int
	PageSize    int
}

// PageSize is the fixed listing page size
func (s *UsageService) PageSize() int {
	return s.pageSize
}

// MonthWindow returns [first day of month, first day of next month) in loc
func MonthWindow(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func (s *UsageService) filter(userID uint, year, month int) (repository.UsageFilter, error) {
	f := repository.UsageFilter{UserID: userID}
	if year == 0 || month == 0 {
		return f, nil
	}
	if month < 1 || month > 12 {
		return f, validationError("월은 1~12 사이로 입력해주세요.")
	}
	if year < 1 {
		return f, validationError("연도가 올바르지 않습니다.")
	}
	f.From, f.To = MonthWindow(year, month, s.location)
	return f, nil
}

// List returns one page of the user's usages. Pages below 1 clamp to 1.
func (s *UsageService) List(userID uint, q ListQuery) (*UsagePage, error) {
	f, err := s.filter(userID, q.Year, q.Month)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}

	result := &UsagePage{Page: page, PageSize: s.pageSize}

	var g errgroup.Group
	g.Go(func() error {
		items, err := s.usageRepo.FindPage(f, page, s.pageSize)
		result.Items = items
		return err
	})
	g.Go(func() error {
		total, err := s.usageRepo.Count(f)
		result.Total = total
		return err
	})
	g.Go(func() error {
		sum, err := s.usageRepo.SumAmount(f)
		result.TotalAmount = sum
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}

	return result, nil
}

// Get returns one usage owned by userID
func (s *UsageService) Get(userID, id uint) (*models.Usage, error) {
	return s.usageRepo.GetByIDAndUserID(id, userID)
}

// Create records a new usage
func (s *UsageService) Create(userID uint, req *UsageRequest) (*models.Usage, error) {
	usage := &models.Usage{UserID: userID}
	if err := s.apply(userID, usage, req); err != nil {
		return nil, err
	}

	if err := s.usageRepo.Create(usage); err != nil {
		return nil, fmt.Errorf("create usage: %w", err)
	}
	return s.usageRepo.GetByIDAndUserID(usage.ID, userID)
}

// Update replaces every editable field of a usage owned by userID
func (s *UsageService) Update(userID, id uint, req *UsageRequest) (*models.Usage, error) {
	usage, err := s.usageRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	if err := s.apply(userID, usage, req); err != nil {
		return nil, err
	}

	if err := s.usageRepo.Update(usage); err != nil {
		return nil, fmt.Errorf("update usage: %w", err)
	}
	return s.usageRepo.GetByIDAndUserID(id, userID)
}

// Delete permanently removes a usage owned by userID
func (s *UsageService) Delete(userID, id uint) error {
	return s.usageRepo.Delete(id, userID)
}

// apply validates req and copies it onto usage
func (s *UsageService) apply(userID uint, usage *models.Usage, req *UsageRequest) error {
	purpose := strings.TrimSpace(req.Purpose)
	if strings.TrimSpace(req.UsedAt) == "" || purpose == "" {
		return validationError("필수 항목을 모두 입력해주세요.")
	}

	usedAt, err := s.ParseUsedAt(req.UsedAt)
	if err != nil {
		return err
	}

	if req.Amount.Valid {
		if req.Amount.Decimal.IsNegative() {
			return validationError("금액은 0 이상이어야 합니다.")
		}
		if !req.Amount.Decimal.Equal(req.Amount.Decimal.Truncate(amountScale)) {
			return validationError("금액은 소수점 둘째 자리까지 입력할 수 있습니다.")
		}
	}

	var categoryID *uint
	if req.CategoryID != nil && *req.CategoryID != 0 {
		owned, err := s.categories.Owns(userID, *req.CategoryID)
		if err != nil {
			return err
		}
		if !owned {
			return validationError("존재하지 않는 항목입니다.")
		}
		id := *req.CategoryID
		categoryID = &id
	}

	var memo *string
	if req.Memo != nil && *req.Memo != "" {
		m := *req.Memo
		memo = &m
	}

	usage.UsedAt = usedAt
	usage.Merchant = req.Merchant
	usage.Amount = req.Amount
	usage.Purpose = purpose
	usage.Memo = memo
	usage.CategoryID = categoryID
	usage.Category = nil
	return nil
}

// ParseUsedAt accepts a calendar date (midnight in the ledger timezone) or an
// RFC 3339 timestamp
func (s *UsageService) ParseUsedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, s.location); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(s.location), nil
	}
	return time.Time{}, validationError("사용일자 형식이 올바르지 않습니다.")
}

// IsNotFound reports whether err means the usage is absent or not owned
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrUsageNotFound) ||
		errors.Is(err, repository.ErrCategoryNotFound) ||
		errors.Is(err, repository.ErrUserNotFound)
}
