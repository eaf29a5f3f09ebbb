package repository

import (
	"context"

	"assetdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	FindByTag(ctx context.Context, tag string) (*model.Asset, error)
	List(ctx context.Context, search, status string, categoryID *uuid.UUID, page, limit int) ([]model.Asset, int64, error)
	Update(ctx context.Context, asset *model.Asset) error
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// SetAssignment locks the asset row, then updates its assignee and
	// status. Run inside the same transaction as the request transition so
	// both mutations commit or roll back together.
	SetAssignment(ctx context.Context, id uuid.UUID, assignedTo *uuid.UUID, status string) error
	// SetStatus updates only the status, leaving the current assignee in
	// place (repair, retire).
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Create(asset).Error
}

func (r *assetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).
		Preload("Category").
		Preload("Department").
		Preload("Assignee").
		First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) FindByTag(ctx context.Context, tag string) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).First(&asset, "tag = ?", tag).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) List(ctx context.Context, search, status string, categoryID *uuid.UUID, page, limit int) ([]model.Asset, int64, error) {
	db := GetDB(ctx, r.db)

	build := func() *gorm.DB {
		query := db.Model(&model.Asset{})
		if search != "" {
			pattern := "%" + search + "%"
			query = query.Where("name ILIKE ? OR tag ILIKE ? OR serial_no ILIKE ?", pattern, pattern, pattern)
		}
		if status != "" {
			query = query.Where("status = ?", status)
		}
		if categoryID != nil {
			query = query.Where("category_id = ?", *categoryID)
		}
		return query
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var assets []model.Asset
	if err := build().
		Preload("Category").
		Preload("Assignee").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}

func (r *assetRepository) Update(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Save(asset).Error
}

func (r *assetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Asset{}, "id = ?", id).Error
}

func (r *assetRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Asset{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *assetRepository) SetAssignment(ctx context.Context, id uuid.UUID, assignedTo *uuid.UUID, status string) error {
	db := GetDB(ctx, r.db)

	var asset model.Asset
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&asset, "id = ?", id).Error; err != nil {
		return err
	}

	return db.Model(&asset).Updates(map[string]interface{}{
		"assigned_to": assignedTo,
		"status":      status,
	}).Error
}

func (r *assetRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	db := GetDB(ctx, r.db)

	var asset model.Asset
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&asset, "id = ?", id).Error; err != nil {
		return err
	}

	return db.Model(&asset).Update("status", status).Error
}
