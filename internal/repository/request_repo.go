package repository

import (
	"context"
	"time"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List/CountByType queries. Zero values mean "no
// filter". Search matches the referenced asset's name or tag.
type RequestFilter struct {
	RequestedBy  *uuid.UUID
	RequestedTo  *uuid.UUID
	DepartmentID *uuid.UUID
	Type         string
	Status       string
	Search       string
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.Request, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// TransitionStatus performs the conditional update "set status where
	// status = pending" and reports how many rows changed. Zero means the
	// request was already resolved by a concurrent caller.
	TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, resolvedBy *uuid.UUID, reason string) (int64, error)
	CountByType(ctx context.Context, filter RequestFilter) (map[string]int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).
		Preload("Asset").
		Preload("Requester").
		Preload("Assignee").
		Preload("Resolver").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func applyFilter(query *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.RequestedBy != nil {
		query = query.Where("requests.requested_by = ?", *filter.RequestedBy)
	}
	if filter.RequestedTo != nil {
		query = query.Where("requests.requested_to = ?", *filter.RequestedTo)
	}
	if filter.DepartmentID != nil {
		query = query.Where("requests.department_id = ?", *filter.DepartmentID)
	}
	if filter.Type != "" {
		query = query.Where("requests.type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("requests.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.
			Joins("LEFT JOIN assets ON assets.id = requests.asset_id").
			Where("assets.name ILIKE ? OR assets.tag ILIKE ?", pattern, pattern)
	}
	return query
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter, page, limit int) ([]model.Request, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := applyFilter(db.Model(&model.Request{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var requests []model.Request
	fetchQuery := applyFilter(db.Model(&model.Request{}), filter).
		Preload("Asset").
		Preload("Requester").
		Preload("Assignee")
	if err := fetchQuery.Order("requests.created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Request{}, "id = ?", id).Error
}

func (r *requestRepository) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, resolvedBy *uuid.UUID, reason string) (int64, error) {
	now := time.Now()
	result := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":           newStatus,
			"resolved_by":      resolvedBy,
			"resolved_at":      &now,
			"rejection_reason": reason,
			"updated_at":       now,
		})
	return result.RowsAffected, result.Error
}

func (r *requestRepository) CountByType(ctx context.Context, filter RequestFilter) (map[string]int64, error) {
	type row struct {
		Type  string
		Count int64
	}
	var rows []row
	err := applyFilter(GetDB(ctx, r.db).Model(&model.Request{}), filter).
		Select("requests.type AS type, COUNT(*) AS count").
		Group("requests.type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(model.RequestTypes))
	for _, t := range model.RequestTypes {
		counts[t] = 0
	}
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
