package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	inspectiondomain "github.com/smallbiznis/metrolab/internal/inspection/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() inspectiondomain.Repository {
	return &repo{}
}

func (r *repo) FindApprovedInWindow(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID, start, end time.Time) (*inspectiondomain.InspectionRecord, error) {
	var item inspectiondomain.InspectionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_id, inspected_at, is_ok, notes, created_by_user_id, created_at
		 FROM inspections
		 WHERE equipment_id = ? AND inspected_at >= ? AND inspected_at < ? AND is_ok = ?
		 ORDER BY inspected_at DESC
		 LIMIT 1`,
		equipmentID,
		start.UTC(),
		end.UTC(),
		true,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
