package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assetdesk/internal/apperr"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateAssetRequest struct {
	Tag          string           `json:"tag" binding:"required"`
	Name         string           `json:"name" binding:"required"`
	SerialNo     string           `json:"serial_no"`
	CategoryID   string           `json:"category_id"`
	DepartmentID string           `json:"department_id"`
	Status       string           `json:"status"`
	PurchaseCost *decimal.Decimal `json:"purchase_cost"`
	PurchaseDate *time.Time       `json:"purchase_date"`
	Notes        string           `json:"notes"`
}

type UpdateAssetRequest struct {
	Name         string           `json:"name"`
	SerialNo     string           `json:"serial_no"`
	CategoryID   string           `json:"category_id"`
	DepartmentID string           `json:"department_id"`
	Status       string           `json:"status"`
	PurchaseCost *decimal.Decimal `json:"purchase_cost"`
	PurchaseDate *time.Time       `json:"purchase_date"`
	Notes        string           `json:"notes"`
}

type AssetResponse struct {
	ID           string  `json:"id"`
	Tag          string  `json:"tag"`
	Name         string  `json:"name"`
	SerialNo     string  `json:"serial_no"`
	CategoryID   *string `json:"category_id"`
	CategoryName string  `json:"category_name,omitempty"`
	DepartmentID *string `json:"department_id"`
	Status       string  `json:"status"`
	AssignedTo   *string `json:"assigned_to"`
	AssigneeName string  `json:"assignee_name,omitempty"`
	PurchaseCost *string `json:"purchase_cost"`
	PurchaseDate *string `json:"purchase_date"`
	Notes        string  `json:"notes"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

var validAssetStatuses = map[string]bool{
	model.AssetStatusAvailable:        true,
	model.AssetStatusAssigned:         true,
	model.AssetStatusUnderMaintenance: true,
	model.AssetStatusLost:             true,
	model.AssetStatusRetired:          true,
}

// --- Interface ---

type AssetService interface {
	CreateAsset(ctx context.Context, userID string, req CreateAssetRequest) (*AssetResponse, error)
	GetAsset(ctx context.Context, id string) (*AssetResponse, error)
	ListAssets(ctx context.Context, search, status, categoryID string, page, limit int) ([]AssetResponse, int64, error)
	UpdateAsset(ctx context.Context, userID, id string, req UpdateAssetRequest) (*AssetResponse, error)
	DeleteAsset(ctx context.Context, userID, id string) error
}

type assetService struct {
	assets repository.AssetRepository
	audit  repository.AuditRepository
	tx     repository.TransactionManager
}

func NewAssetService(assets repository.AssetRepository, audit repository.AuditRepository, tx repository.TransactionManager) AssetService {
	return &assetService{assets: assets, audit: audit, tx: tx}
}

// --- Implementation ---

func (s *assetService) CreateAsset(ctx context.Context, userID string, req CreateAssetRequest) (*AssetResponse, error) {
	status := req.Status
	if status == "" {
		status = model.AssetStatusAvailable
	}
	if !validAssetStatuses[status] {
		return nil, apperr.NewValidationMsg("status", "unknown asset status")
	}

	if _, err := s.assets.FindByTag(ctx, req.Tag); err == nil {
		return nil, apperr.NewValidationMsg("tag", "already in use")
	}

	asset := &model.Asset{
		Tag:          req.Tag,
		Name:         req.Name,
		SerialNo:     req.SerialNo,
		Status:       status,
		PurchaseCost: req.PurchaseCost,
		PurchaseDate: req.PurchaseDate,
		Notes:        req.Notes,
	}

	var err error
	if asset.CategoryID, err = parseOptionalID("category_id", req.CategoryID); err != nil {
		return nil, err
	}
	if asset.DepartmentID, err = parseOptionalID("department_id", req.DepartmentID); err != nil {
		return nil, err
	}

	actor, _ := uuid.Parse(userID)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.assets.Create(txCtx, asset); createErr != nil {
			return fmt.Errorf("failed to create asset: %w", createErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionCreateAsset, asset)
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, asset.ID)
}

func (s *assetService) GetAsset(ctx context.Context, id string) (*AssetResponse, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("asset", id)
	}
	return s.get(ctx, assetID)
}

func (s *assetService) ListAssets(ctx context.Context, search, status, categoryID string, page, limit int) ([]AssetResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var category *uuid.UUID
	if categoryID != "" {
		parsed, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, 0, apperr.NewValidationMsg("category_id", "must be a UUID")
		}
		category = &parsed
	}

	assets, total, err := s.assets.List(ctx, search, status, category, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}

	responses := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		responses = append(responses, *toAssetResponse(&assets[i]))
	}
	return responses, total, nil
}

func (s *assetService) UpdateAsset(ctx context.Context, userID, id string, req UpdateAssetRequest) (*AssetResponse, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("asset", id)
	}

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return nil, mapRecordErr(err, "asset", id)
	}

	if req.Name != "" {
		asset.Name = req.Name
	}
	if req.SerialNo != "" {
		asset.SerialNo = req.SerialNo
	}
	if req.Status != "" {
		if !validAssetStatuses[req.Status] {
			return nil, apperr.NewValidationMsg("status", "unknown asset status")
		}
		asset.Status = req.Status
	}
	if req.CategoryID != "" {
		if asset.CategoryID, err = parseOptionalID("category_id", req.CategoryID); err != nil {
			return nil, err
		}
	}
	if req.DepartmentID != "" {
		if asset.DepartmentID, err = parseOptionalID("department_id", req.DepartmentID); err != nil {
			return nil, err
		}
	}
	if req.PurchaseCost != nil {
		asset.PurchaseCost = req.PurchaseCost
	}
	if req.PurchaseDate != nil {
		asset.PurchaseDate = req.PurchaseDate
	}
	if req.Notes != "" {
		asset.Notes = req.Notes
	}

	actor, _ := uuid.Parse(userID)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.assets.Update(txCtx, asset); updateErr != nil {
			return fmt.Errorf("failed to update asset: %w", updateErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionUpdateAsset, asset)
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, assetID)
}

func (s *assetService) DeleteAsset(ctx context.Context, userID, id string) error {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewNotFound("asset", id)
	}

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return mapRecordErr(err, "asset", id)
	}

	actor, _ := uuid.Parse(userID)
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.assets.Delete(txCtx, assetID); delErr != nil {
			return fmt.Errorf("failed to delete asset: %w", delErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionDeleteAsset, asset)
	})
}

// --- Helpers ---

func (s *assetService) get(ctx context.Context, id uuid.UUID) (*AssetResponse, error) {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("asset", id.String())
		}
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	return toAssetResponse(asset), nil
}

func (s *assetService) writeAudit(ctx context.Context, actor uuid.UUID, action string, asset *model.Asset) error {
	details, _ := json.Marshal(map[string]interface{}{
		"tag":    asset.Tag,
		"status": asset.Status,
	})
	var userID *uuid.UUID
	if actor != uuid.Nil {
		userID = &actor
	}
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   asset.ID.String(),
		EntityName: asset.Name,
		Details:    string(details),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return nil, apperr.NewValidationMsg(field, "must be a UUID")
	}
	return &parsed, nil
}

func toAssetResponse(a *model.Asset) *AssetResponse {
	resp := &AssetResponse{
		ID:        a.ID.String(),
		Tag:       a.Tag,
		Name:      a.Name,
		SerialNo:  a.SerialNo,
		Status:    a.Status,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if a.CategoryID != nil {
		s := a.CategoryID.String()
		resp.CategoryID = &s
	}
	if a.Category != nil {
		resp.CategoryName = a.Category.Name
	}
	if a.DepartmentID != nil {
		s := a.DepartmentID.String()
		resp.DepartmentID = &s
	}
	if a.AssignedTo != nil {
		s := a.AssignedTo.String()
		resp.AssignedTo = &s
	}
	if a.Assignee != nil {
		resp.AssigneeName = a.Assignee.Username
	}
	if a.PurchaseCost != nil {
		s := a.PurchaseCost.StringFixed(2)
		resp.PurchaseCost = &s
	}
	if a.PurchaseDate != nil {
		s := a.PurchaseDate.Format("2006-01-02")
		resp.PurchaseDate = &s
	}
	return resp
}
