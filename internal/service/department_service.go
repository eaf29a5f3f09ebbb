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

type DepartmentInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type DepartmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type DepartmentService interface {
	CreateDepartment(ctx context.Context, req DepartmentInput) (*DepartmentResponse, error)
	ListDepartments(ctx context.Context, page, limit int) ([]DepartmentResponse, int64, error)
	UpdateDepartment(ctx context.Context, id string, req DepartmentInput) (*DepartmentResponse, error)
	DeleteDepartment(ctx context.Context, id string) error
}

type departmentService struct {
	departments repository.DepartmentRepository
}

func NewDepartmentService(departments repository.DepartmentRepository) DepartmentService {
	return &departmentService{departments: departments}
}

func toDepartmentResponse(d *model.Department) *DepartmentResponse {
	return &DepartmentResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

func (s *departmentService) CreateDepartment(ctx context.Context, req DepartmentInput) (*DepartmentResponse, error) {
	if _, err := s.departments.FindByName(ctx, req.Name); err == nil {
		return nil, apperr.NewValidationMsg("name", "already exists")
	}

	department := &model.Department{Name: req.Name, Description: req.Description}
	if err := s.departments.Create(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return toDepartmentResponse(department), nil
}

func (s *departmentService) ListDepartments(ctx context.Context, page, limit int) ([]DepartmentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	departments, total, err := s.departments.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list departments: %w", err)
	}

	responses := make([]DepartmentResponse, 0, len(departments))
	for i := range departments {
		responses = append(responses, *toDepartmentResponse(&departments[i]))
	}
	return responses, total, nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, id string, req DepartmentInput) (*DepartmentResponse, error) {
	departmentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("department", id)
	}

	department, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("department", id)
		}
		return nil, fmt.Errorf("failed to load department: %w", err)
	}

	if req.Name != "" && req.Name != department.Name {
		if _, err := s.departments.FindByName(ctx, req.Name); err == nil {
			return nil, apperr.NewValidationMsg("name", "already exists")
		}
		department.Name = req.Name
	}
	if req.Description != "" {
		department.Description = req.Description
	}

	if err := s.departments.Update(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}
	return toDepartmentResponse(department), nil
}

func (s *departmentService) DeleteDepartment(ctx context.Context, id string) error {
	departmentID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewNotFound("department", id)
	}
	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("department", id)
		}
		return fmt.Errorf("failed to load department: %w", err)
	}
	return s.departments.Delete(ctx, departmentID)
}
