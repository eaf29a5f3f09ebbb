package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateAsset      = "CREATE_ASSET"
	ActionUpdateAsset      = "UPDATE_ASSET"
	ActionDeleteAsset      = "DELETE_ASSET"
	ActionCreateCategory   = "CREATE_CATEGORY"
	ActionCreateDepartment = "CREATE_DEPARTMENT"

	// Request workflow actions
	ActionCreateRequest = "CREATE_REQUEST"
	ActionAcceptRequest = "ACCEPT_REQUEST"
	ActionRejectRequest = "REJECT_REQUEST"
	ActionExpireRequest = "EXPIRE_REQUEST"
	ActionDeleteRequest = "DELETE_REQUEST"
	ActionAssetMutation = "APPLY_ASSET_MUTATION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated sweep
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/tag)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
