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

// ParticipantsInput carries the requester, the optional specific approver,
// and the department context. RequestedToID of "" or "-" means "any manager".
type ParticipantsInput struct {
	RequestedByID string `json:"requestedById" binding:"required"`
	RequestedToID string `json:"requestedToId"`
	DepartmentID  string `json:"departmentId"`
}

type CreateRequestInput struct {
	Type               string            `json:"type" binding:"required"`
	AssetID            string            `json:"assetId"`
	Priority           string            `json:"priority"`
	Description        string            `json:"description"`
	Notes              string            `json:"notes"`
	ExpectedCompletion *time.Time        `json:"expectedCompletion"`
	Participants       ParticipantsInput `json:"participants" binding:"required"`

	// Type-specific fields
	ReturnDate          *time.Time       `json:"returnDate"`
	ConditionRating     string           `json:"conditionRating"`
	IssueType           string           `json:"issueType"`
	IssueDescription    string           `json:"issueDescription"`
	RetireReason        string           `json:"retireReason"`
	DisposalMethod      string           `json:"disposalMethod"`
	NewAssetName        string           `json:"newAssetName"`
	NewAssetDescription string           `json:"newAssetDescription"`
	Reason              string           `json:"reason"`
	CostEstimate        *decimal.Decimal `json:"costEstimate"`
}

type TransitionInput struct {
	UserID string `json:"UserId" binding:"required"`
	Reason string `json:"reason"`
}

type RequestResponse struct {
	ID                  string  `json:"id"`
	Type                string  `json:"type"`
	AssetID             *string `json:"asset_id"`
	AssetTag            string  `json:"asset_tag,omitempty"`
	AssetName           string  `json:"asset_name,omitempty"`
	Priority            string  `json:"priority"`
	Description         string  `json:"description"`
	Notes               string  `json:"notes"`
	RequestedBy         string  `json:"requested_by"`
	RequesterName       string  `json:"requester_name"`
	RequestedTo         *string `json:"requested_to"`
	AssigneeName        string  `json:"assignee_name"` // "Manager" when unassigned
	DepartmentID        *string `json:"department_id"`
	ReturnDate          *string `json:"return_date,omitempty"`
	ConditionRating     string  `json:"condition_rating,omitempty"`
	IssueType           string  `json:"issue_type,omitempty"`
	IssueDescription    string  `json:"issue_description,omitempty"`
	RetireReason        string  `json:"retire_reason,omitempty"`
	DisposalMethod      string  `json:"disposal_method,omitempty"`
	NewAssetName        string  `json:"new_asset_name,omitempty"`
	NewAssetDescription string  `json:"new_asset_description,omitempty"`
	UpdateReason        string  `json:"update_reason,omitempty"`
	CostEstimate        *string `json:"cost_estimate,omitempty"`
	Status              string  `json:"status"`
	ResolvedBy          *string `json:"resolved_by"`
	ResolverName        string  `json:"resolver_name,omitempty"`
	ResolvedAt          *string `json:"resolved_at"`
	RejectionReason     string  `json:"rejection_reason,omitempty"`
	ExpectedCompletion  *string `json:"expected_completion"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// EventPublisher pushes workflow events to connected dashboard clients.
// Satisfied by the websocket hub; may be nil in tests.
type EventPublisher interface {
	Publish(message []byte)
}

// --- Interface ---

// RequestService is the workflow around the Request entity: typed creation,
// the single pending → terminal transition with its asset side effect, and
// creator-only deletion.
type RequestService interface {
	Create(ctx context.Context, input CreateRequestInput) (*RequestResponse, error)
	Get(ctx context.Context, id string) (*RequestResponse, error)
	Transition(ctx context.Context, id, newStatus, byUserID, reason string) (*RequestResponse, error)
	Delete(ctx context.Context, id, byUserID string) error
}

type requestService struct {
	requests    repository.RequestRepository
	assets      repository.AssetRepository
	users       repository.UserRepository
	departments repository.DepartmentRepository
	audit       repository.AuditRepository
	tx          repository.TransactionManager
	events      EventPublisher
}

func NewRequestService(
	requests repository.RequestRepository,
	assets repository.AssetRepository,
	users repository.UserRepository,
	departments repository.DepartmentRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	events EventPublisher,
) RequestService {
	return &requestService{
		requests:    requests,
		assets:      assets,
		users:       users,
		departments: departments,
		audit:       audit,
		tx:          tx,
		events:      events,
	}
}

// terminalStatuses lists every status reachable from pending. accepted and
// rejected come from the approve/reject endpoints; expired from the external
// sweep; completed and cancelled are extension states some flows use. All are
// terminal.
var terminalStatuses = map[string]bool{
	model.RequestStatusAccepted:  true,
	model.RequestStatusRejected:  true,
	model.RequestStatusExpired:   true,
	model.RequestStatusCompleted: true,
	model.RequestStatusCancelled: true,
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, input CreateRequestInput) (*RequestResponse, error) {
	if err := validatePayload(&input); err != nil {
		return nil, err
	}

	priority, err := canonicalPriority(input.Priority)
	if err != nil {
		return nil, err
	}

	requestedBy, err := uuid.Parse(input.Participants.RequestedByID)
	if err != nil {
		return nil, apperr.NewValidationMsg("participants.requestedById", "must be a UUID")
	}
	if err := s.checkUserExists(ctx, requestedBy); err != nil {
		return nil, err
	}

	var requestedTo *uuid.UUID
	if to := input.Participants.RequestedToID; to != "" && to != "-" {
		parsed, parseErr := uuid.Parse(to)
		if parseErr != nil {
			return nil, apperr.NewValidationMsg("participants.requestedToId", "must be a UUID")
		}
		if err := s.checkUserExists(ctx, parsed); err != nil {
			return nil, err
		}
		requestedTo = &parsed
	}

	var departmentID *uuid.UUID
	if dep := input.Participants.DepartmentID; dep != "" {
		parsed, parseErr := uuid.Parse(dep)
		if parseErr != nil {
			return nil, apperr.NewValidationMsg("participants.departmentId", "must be a UUID")
		}
		exists, existsErr := s.departments.Exists(ctx, parsed)
		if existsErr != nil {
			return nil, fmt.Errorf("failed to verify department: %w", existsErr)
		}
		if !exists {
			return nil, apperr.NewReference("department", dep)
		}
		departmentID = &parsed
	}

	var assetID *uuid.UUID
	if input.AssetID != "" {
		parsed, parseErr := uuid.Parse(input.AssetID)
		if parseErr != nil {
			return nil, apperr.NewValidationMsg("assetId", "must be a UUID")
		}
		exists, existsErr := s.assets.Exists(ctx, parsed)
		if existsErr != nil {
			return nil, fmt.Errorf("failed to verify asset: %w", existsErr)
		}
		if !exists {
			return nil, apperr.NewReference("asset", input.AssetID)
		}
		assetID = &parsed
	}

	request := &model.Request{
		Type:                input.Type,
		AssetID:             assetID,
		Priority:            priority,
		Description:         input.Description,
		Notes:               input.Notes,
		RequestedBy:         requestedBy,
		RequestedTo:         requestedTo,
		DepartmentID:        departmentID,
		ReturnDate:          input.ReturnDate,
		ConditionRating:     input.ConditionRating,
		IssueType:           input.IssueType,
		IssueDescription:    input.IssueDescription,
		RetireReason:        input.RetireReason,
		DisposalMethod:      input.DisposalMethod,
		NewAssetName:        input.NewAssetName,
		NewAssetDescription: input.NewAssetDescription,
		UpdateReason:        input.Reason,
		CostEstimate:        input.CostEstimate,
		Status:              model.RequestStatusPending,
		ExpectedCompletion:  input.ExpectedCompletion,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requests.Create(txCtx, request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}
		return s.writeAudit(txCtx, &requestedBy, model.ActionCreateRequest, request, map[string]interface{}{
			"type":     request.Type,
			"priority": request.Priority,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish("request.created", request)

	return s.reload(ctx, request.ID)
}

func (s *requestService) Get(ctx context.Context, id string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("request", id)
	}
	return s.reload(ctx, requestID)
}

func (s *requestService) Transition(ctx context.Context, id, newStatus, byUserID, reason string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NewNotFound("request", id)
	}

	actorID, err := uuid.Parse(byUserID)
	if err != nil {
		return nil, apperr.NewValidationMsg("UserId", "must be a UUID")
	}

	if !terminalStatuses[newStatus] {
		return nil, apperr.NewValidationMsg("status", "must be a terminal status")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, mapRecordErr(err, "request", id)
	}

	if model.IsTerminal(request.Status) {
		return nil, apperr.NewInvalidState(request.Status)
	}

	if err := s.checkTransitionPermission(ctx, request, actorID); err != nil {
		return nil, err
	}

	// The status flip and the asset side effect share one transaction. The
	// conditional update is the guard against a double-approve race: the
	// loser sees zero rows changed.
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rows, txErr := s.requests.TransitionStatus(txCtx, requestID, newStatus, &actorID, reason)
		if txErr != nil {
			return fmt.Errorf("failed to update request status: %w", txErr)
		}
		if rows == 0 {
			return apperr.NewInvalidStateMsg("request already resolved by a concurrent transition")
		}

		if newStatus == model.RequestStatusAccepted && hasApprovalEffect(request) {
			if effectErr := applyApprovalEffect(txCtx, s.assets, request); effectErr != nil {
				// Abort the whole transition; the request stays pending.
				return apperr.NewInvalidStateMsg("asset mutation failed: " + effectErr.Error())
			}
		}

		return s.writeAudit(txCtx, &actorID, transitionAction(newStatus), request, map[string]interface{}{
			"type":       request.Type,
			"new_status": newStatus,
			"reason":     reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish("request."+newStatus, request)

	return s.reload(ctx, requestID)
}

func (s *requestService) Delete(ctx context.Context, id, byUserID string) error {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NewNotFound("request", id)
	}

	actorID, err := uuid.Parse(byUserID)
	if err != nil {
		return apperr.NewPermission("unknown actor")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return mapRecordErr(err, "request", id)
	}

	if request.RequestedBy != actorID {
		return apperr.NewPermission("only the creator may delete a request")
	}
	if model.IsTerminal(request.Status) {
		return apperr.NewPermission("resolved requests cannot be deleted")
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.requests.Delete(txCtx, requestID); delErr != nil {
			return fmt.Errorf("failed to delete request: %w", delErr)
		}
		return s.writeAudit(txCtx, &actorID, model.ActionDeleteRequest, request, map[string]interface{}{
			"type": request.Type,
		})
	})
}

// --- Helpers ---

func (s *requestService) checkUserExists(ctx context.Context, id uuid.UUID) error {
	exists, err := s.users.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if !exists {
		return apperr.NewReference("user", id.String())
	}
	return nil
}

// checkTransitionPermission allows the named assignee, or any manager/admin
// (which also covers requests addressed to "any manager").
func (s *requestService) checkTransitionPermission(ctx context.Context, request *model.Request, actorID uuid.UUID) error {
	if request.RequestedTo != nil && *request.RequestedTo == actorID {
		return nil
	}

	role, err := s.users.RoleOf(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewReference("user", actorID.String())
		}
		return fmt.Errorf("failed to resolve actor role: %w", err)
	}
	if !model.IsApprover(role) {
		return apperr.NewPermission("only the assignee or a manager may resolve this request")
	}
	return nil
}

func (s *requestService) writeAudit(ctx context.Context, userID *uuid.UUID, action string, request *model.Request, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   request.ID.String(),
		EntityName: request.Type,
		Details:    string(payload),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *requestService) publish(event string, request *model.Request) {
	if s.events == nil {
		return
	}
	message, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"request_id": request.ID.String(),
		"type":       request.Type,
	})
	if err != nil {
		return
	}
	s.events.Publish(message)
}

func (s *requestService) reload(ctx context.Context, id uuid.UUID) (*RequestResponse, error) {
	request, err := s.requests.FindByIDWithRelations(ctx, id)
	if err != nil {
		return nil, mapRecordErr(err, "request", id.String())
	}
	return toRequestResponse(request), nil
}

func transitionAction(newStatus string) string {
	switch newStatus {
	case model.RequestStatusAccepted:
		return model.ActionAcceptRequest
	case model.RequestStatusRejected:
		return model.ActionRejectRequest
	case model.RequestStatusExpired:
		return model.ActionExpireRequest
	default:
		return model.ActionRejectRequest
	}
}

// mapRecordErr converts gorm's not-found into the NotFoundError class;
// anything else passes through wrapped.
func mapRecordErr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

func toRequestResponse(r *model.Request) *RequestResponse {
	resp := &RequestResponse{
		ID:                  r.ID.String(),
		Type:                r.Type,
		Priority:            r.Priority,
		Description:         r.Description,
		Notes:               r.Notes,
		RequestedBy:         r.RequestedBy.String(),
		AssigneeName:        "Manager", // sentinel: pending manager triage
		ConditionRating:     r.ConditionRating,
		IssueType:           r.IssueType,
		IssueDescription:    r.IssueDescription,
		RetireReason:        r.RetireReason,
		DisposalMethod:      r.DisposalMethod,
		NewAssetName:        r.NewAssetName,
		NewAssetDescription: r.NewAssetDescription,
		UpdateReason:        r.UpdateReason,
		Status:              r.Status,
		RejectionReason:     r.RejectionReason,
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           r.UpdatedAt.Format(time.RFC3339),
	}

	if r.AssetID != nil {
		s := r.AssetID.String()
		resp.AssetID = &s
	}
	if r.Asset != nil {
		resp.AssetTag = r.Asset.Tag
		resp.AssetName = r.Asset.Name
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.RequestedTo != nil {
		s := r.RequestedTo.String()
		resp.RequestedTo = &s
		if r.Assignee != nil {
			resp.AssigneeName = r.Assignee.Username
		}
	}
	if r.DepartmentID != nil {
		s := r.DepartmentID.String()
		resp.DepartmentID = &s
	}
	if r.ReturnDate != nil {
		s := r.ReturnDate.Format(time.RFC3339)
		resp.ReturnDate = &s
	}
	if r.CostEstimate != nil {
		s := r.CostEstimate.StringFixed(2)
		resp.CostEstimate = &s
	}
	if r.ResolvedBy != nil {
		s := r.ResolvedBy.String()
		resp.ResolvedBy = &s
		if r.Resolver != nil {
			resp.ResolverName = r.Resolver.Username
		}
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	if r.ExpectedCompletion != nil {
		s := r.ExpectedCompletion.Format(time.RFC3339)
		resp.ExpectedCompletion = &s
	}

	return resp
}
