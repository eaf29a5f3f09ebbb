package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assetdesk/internal/apperr"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type CategoryService interface {
	CreateCategory(ctx context.Context, req CategoryInput) (*CategoryResponse, error)
	ListCategories(ctx context.Context, page, limit int) ([]CategoryResponse, int64, error)
	UpdateCategory(ctx context.Context, id string, req CategoryInput) (*CategoryResponse, error)
	DeleteCategory(ctx context.Context, id string) error
}

type categoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) CategoryService {
	return &categoryService{categories: categories}
}

func toCategoryResponse(c *model.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, req CategoryInput) (*CategoryResponse, error) {
	if _, err := s.categories.FindByName(ctx, req.Name); err == nil {
		return nil, apperr.NewValidationMsg("name", "already exists")
	}

	category := &model.Category{Name: req.Name, Description: req.Description}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return toCategoryResponse(category), nil
}

func (s *categoryService) ListCategories(ctx context.Context, page, limit int) ([]CategoryResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	categories, total, err := s.categories.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}

	responses := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, *toCategoryResponse(&categories[i]))
	}
	return responses, total, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id string, req CategoryInput) (*CategoryResponse, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("category", id)
	}

	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("category", id)
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	if req.Name != "" && req.Name != category.Name {
		if _, err := s.categories.FindByName(ctx, req.Name); err == nil {
			return nil, apperr.NewValidationMsg("name", "already exists")
		}
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return toCategoryResponse(category), nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewNotFound("category", id)
	}
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("category", id)
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	return s.categories.Delete(ctx, categoryID)
}
