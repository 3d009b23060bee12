package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const equipmentColumns = `id, company_id, terminal_id, equipment_type_id, serial, brand, model, status, is_active,
	inspection_days_override, weight_class, nominal_mass_value, nominal_mass_unit, emp_value, created_at, updated_at`

type repo struct{}

func Provide() equipmentdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*equipmentdomain.Equipment, error) {
	var item equipmentdomain.Equipment
	err := db.WithContext(ctx).Raw(
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*equipmentdomain.Equipment, error) {
	var item equipmentdomain.Equipment
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status equipmentdomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE equipment SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*equipmentdomain.TypeDetail, error) {
	var item equipmentdomain.EquipmentType
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, role, calibration_days, inspection_days, is_active, created_at, updated_at
		 FROM equipment_types WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}

	var measures []equipmentdomain.EquipmentTypeMeasure
	err = db.WithContext(ctx).Raw(
		`SELECT id, equipment_type_id, measure, max_error
		 FROM equipment_type_measures WHERE equipment_type_id = ?`,
		id,
	).Scan(&measures).Error
	if err != nil {
		return nil, err
	}

	detail := &equipmentdomain.TypeDetail{
		Type:     item,
		Measures: make(map[units.Measure]equipmentdomain.EquipmentTypeMeasure, len(measures)),
	}
	for _, m := range measures {
		detail.Measures[m.Measure] = m
	}
	return detail, nil
}

func (r *repo) ListSpecs(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (map[units.Measure]equipmentdomain.MeasureSpec, error) {
	var specs []equipmentdomain.MeasureSpec
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_id, measure, min_value, max_value, resolution
		 FROM equipment_measure_specs WHERE equipment_id = ?`,
		equipmentID,
	).Scan(&specs).Error
	if err != nil {
		return nil, err
	}
	out := make(map[units.Measure]equipmentdomain.MeasureSpec, len(specs))
	for _, s := range specs {
		out[s.Measure] = s
	}
	return out, nil
}
