package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CalibrationRecord is written by the calibration workflow; the
// verification engine only reads the most recent one.
type CalibrationRecord struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EquipmentID     snowflake.ID `json:"equipment_id" gorm:"column:equipment_id;not null;index:ix_calibrations_equipment_at,priority:1"`
	CalibratedAt    time.Time    `json:"calibrated_at" gorm:"column:calibrated_at;not null;index:ix_calibrations_equipment_at,priority:2"`
	Provider        string       `json:"provider" gorm:"column:provider;type:text"`
	CertificateURL  *string      `json:"certificate_url,omitempty" gorm:"column:certificate_url;type:text"`
	CreatedByUserID *string      `json:"created_by_user_id,omitempty" gorm:"column:created_by_user_id;type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

func (CalibrationRecord) TableName() string { return "calibrations" }

type Repository interface {
	FindLatest(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (*CalibrationRecord, error)
}
