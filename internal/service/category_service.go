package service

import (
	"errors"
	"strings"

	"github.com/cardledger/internal/models"
	"github.com/cardledger/internal/repository"
)

// CategoryService manages user-owned expense categories
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CategoryRequest is the body of create and rename requests
type CategoryRequest struct {
	Name string `json:"name"`
}

func normalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("항목명을 입력해주세요.")
	}
	return name, nil
}

// List returns the user's categories in creation order
func (s *CategoryService) List(userID uint) ([]models.Category, error) {
	return s.categoryRepo.GetByUserID(userID)
}

// Create adds a category; names are unique per user after trimming
func (s *CategoryService) Create(userID uint, name string) (*models.Category, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name, UserID: userID}
	if err := s.categoryRepo.Create(category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

// Rename changes a category's name
func (s *CategoryService) Rename(userID, id uint, name string) (*models.Category, error) {
	category, err := s.categoryRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	name, err = normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	if name == category.Name {
		return category, nil
	}

	if err := s.categoryRepo.Rename(category, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

// Delete removes a category after detaching every usage that references it
func (s *CategoryService) Delete(userID, id uint) error {
	return s.categoryRepo.DeleteDetached(id, userID)
}

// Owns reports whether the category exists and belongs to userID
func (s *CategoryService) Owns(userID, id uint) (bool, error) {
	_, err := s.categoryRepo.GetByIDAndUserID(id, userID)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return false, nil
	}
	return err == nil, err
}
