package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestType enum constants — fixed at creation, never mutated.
const (
	RequestTypeAssign   = "assign"
	RequestTypeRequest  = "request"
	RequestTypeReturn   = "return"
	RequestTypeRepair   = "repair"
	RequestTypeRetire   = "retire"
	RequestTypeTransfer = "transfer"
	RequestTypeUpdate   = "update"
	RequestTypeDispose  = "dispose"
)

// RequestTypes lists every valid request type.
var RequestTypes = []string{
	RequestTypeAssign,
	RequestTypeRequest,
	RequestTypeReturn,
	RequestTypeRepair,
	RequestTypeRetire,
	RequestTypeTransfer,
	RequestTypeUpdate,
	RequestTypeDispose,
}

// RequestStatus constants. A request starts pending and moves at most once
// to one of the terminal states below.
const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusRejected  = "rejected"
	RequestStatusExpired   = "expired"
	RequestStatusCompleted = "completed"
	RequestStatusCancelled = "cancelled"
)

// Priority constants, ordered low → critical. "urgent" is accepted on input
// and canonicalized to critical.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ConditionRating constants used by return/retire requests.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
	ConditionBroken    = "broken"
)

// Request represents one workflow item against an asset. The per-type payload
// is stored as nullable columns rather than eight parallel tables; the service
// layer enforces which of them are required for each type.
type Request struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type     string     `gorm:"type:varchar(20);not null;index" json:"type"`
	AssetID  *uuid.UUID `gorm:"type:uuid;index" json:"asset_id"` // nullable only for the update/new-asset variant
	Asset    *Asset     `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Priority string     `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	Description string `gorm:"type:text" json:"description"`
	Notes       string `gorm:"type:text" json:"notes"`

	// Participants
	RequestedBy  uuid.UUID   `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester    *User       `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequestedTo  *uuid.UUID  `gorm:"type:uuid;index" json:"requested_to"` // nil means "any manager"
	Assignee     *User       `gorm:"foreignKey:RequestedTo" json:"assignee,omitempty"`
	DepartmentID *uuid.UUID  `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`

	// Type-specific fields
	ReturnDate          *time.Time       `json:"return_date"`
	ConditionRating     string           `gorm:"type:varchar(20)" json:"condition_rating"`
	IssueType           string           `gorm:"type:varchar(50)" json:"issue_type"`
	IssueDescription    string           `gorm:"type:text" json:"issue_description"`
	RetireReason        string           `gorm:"type:text" json:"retire_reason"`
	DisposalMethod      string           `gorm:"type:varchar(50)" json:"disposal_method"`
	NewAssetName        string           `gorm:"type:varchar(255)" json:"new_asset_name"`
	NewAssetDescription string           `gorm:"type:text" json:"new_asset_description"`
	UpdateReason        string           `gorm:"type:text" json:"update_reason"`
	CostEstimate        *decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost_estimate"`

	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ResolvedBy      *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
	Resolver        *User      `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	ExpectedCompletion *time.Time `json:"expected_completion"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status != RequestStatusPending
}
