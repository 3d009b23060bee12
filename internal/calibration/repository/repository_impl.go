package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	calibrationdomain "github.com/smallbiznis/metrolab/internal/calibration/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() calibrationdomain.Repository {
	return &repo{}
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (*calibrationdomain.CalibrationRecord, error) {
	var item calibrationdomain.CalibrationRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_id, calibrated_at, provider, certificate_url, created_by_user_id, created_at
		 FROM calibrations
		 WHERE equipment_id = ?
		 ORDER BY calibrated_at DESC
		 LIMIT 1`,
		equipmentID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
