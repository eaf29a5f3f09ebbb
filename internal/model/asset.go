package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssetStatus constants
const (
	AssetStatusAvailable        = "available"
	AssetStatusAssigned         = "assigned"
	AssetStatusUnderMaintenance = "under_maintenance"
	AssetStatusLost             = "lost"
	AssetStatusRetired          = "retired"
)

// Asset represents a trackable inventory item (hardware) with a tag,
// category, status, and optional assignee.
type Asset struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Tag          string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"tag"`
	Name         string           `gorm:"type:varchar(255);not null" json:"name"`
	SerialNo     string           `gorm:"type:varchar(100)" json:"serial_no"`
	CategoryID   *uuid.UUID       `gorm:"type:uuid;index" json:"category_id"`
	Category     *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	DepartmentID *uuid.UUID       `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department      `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Status       string           `gorm:"type:varchar(30);not null;default:'available';index" json:"status"`
	AssignedTo   *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_to"`
	Assignee     *User            `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	PurchaseCost *decimal.Decimal `gorm:"type:decimal(12,2)" json:"purchase_cost"`
	PurchaseDate *time.Time       `json:"purchase_date"`
	Notes        string           `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Category groups assets (laptops, monitors, peripherals, ...).
type Category struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Department is the organizational unit a user or asset belongs to.
type Department struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
