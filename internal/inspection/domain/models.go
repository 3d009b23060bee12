package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// InspectionRecord is the outcome of a routine inspection. Only approved
// inspections inside a day window matter to verification.
type InspectionRecord struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EquipmentID     snowflake.ID `json:"equipment_id" gorm:"column:equipment_id;not null;index:ix_inspections_equipment_at,priority:1"`
	InspectedAt     time.Time    `json:"inspected_at" gorm:"column:inspected_at;not null;index:ix_inspections_equipment_at,priority:2"`
	IsOK            bool         `json:"is_ok" gorm:"column:is_ok;not null"`
	Notes           *string      `json:"notes,omitempty" gorm:"column:notes;type:text"`
	CreatedByUserID *string      `json:"created_by_user_id,omitempty" gorm:"column:created_by_user_id;type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (InspectionRecord) TableName() string { return "inspections" }

type Repository interface {
	// FindApprovedInWindow returns the first approved inspection with
	// inspected_at in [start, end).
	FindApprovedInWindow(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID, start, end time.Time) (*InspectionRecord, error)
}
