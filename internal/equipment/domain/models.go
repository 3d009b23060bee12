package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/units"
)

type Role string

const (
	RoleReference Role = "reference"
	RoleWorking   Role = "working"
)

type Status string

const (
	StatusStored      Status = "stored"
	StatusInUse       Status = "in_use"
	StatusMaintenance Status = "maintenance"
	StatusNeedsReview Status = "needs_review"
	StatusLost        Status = "lost"
	StatusDisposed    Status = "disposed"
	StatusUnknown     Status = "unknown"
)

// EquipmentType is the catalog entry shared by every instrument of a kind.
// At most one type exists per (name, role).
type EquipmentType struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Name            string       `json:"name" gorm:"column:name;type:text;not null;uniqueIndex:ux_equipment_types_name_role,priority:1"`
	Role            Role         `json:"role" gorm:"column:role;type:text;not null;uniqueIndex:ux_equipment_types_name_role,priority:2"`
	CalibrationDays int          `json:"calibration_days" gorm:"column:calibration_days;not null;default:0"`
	InspectionDays  int          `json:"inspection_days" gorm:"column:inspection_days;not null;default:0"`
	IsActive        bool         `json:"is_active" gorm:"column:is_active;not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (EquipmentType) TableName() string { return "equipment_types" }

// EquipmentTypeMeasure declares one supported measure of a type together
// with its maximum error in the canonical unit of the measure.
type EquipmentTypeMeasure struct {
	ID              snowflake.ID  `json:"id" gorm:"primaryKey"`
	EquipmentTypeID snowflake.ID  `json:"equipment_type_id" gorm:"column:equipment_type_id;not null;uniqueIndex:ux_equipment_type_measures,priority:1"`
	Measure         units.Measure `json:"measure" gorm:"column:measure;type:text;not null;uniqueIndex:ux_equipment_type_measures,priority:2"`
	MaxError        *float64      `json:"max_error,omitempty" gorm:"column:max_error"`
}

func (EquipmentTypeMeasure) TableName() string { return "equipment_type_measures" }

// Equipment is one physical instrument.
type Equipment struct {
	ID                     snowflake.ID `json:"id" gorm:"primaryKey"`
	CompanyID              snowflake.ID `json:"company_id" gorm:"column:company_id;not null;index"`
	TerminalID             snowflake.ID `json:"terminal_id" gorm:"column:terminal_id;not null;index"`
	EquipmentTypeID        snowflake.ID `json:"equipment_type_id" gorm:"column:equipment_type_id;not null;index"`
	Serial                 string       `json:"serial" gorm:"column:serial;type:text;not null"`
	Brand                  string       `json:"brand" gorm:"column:brand;type:text"`
	Model                  string       `json:"model" gorm:"column:model;type:text"`
	Status                 Status       `json:"status" gorm:"column:status;type:text;not null;default:'stored'"`
	IsActive               bool         `json:"is_active" gorm:"column:is_active;not null"`
	InspectionDaysOverride *int         `json:"inspection_days_override,omitempty" gorm:"column:inspection_days_override"`
	WeightClass            *string      `json:"weight_class,omitempty" gorm:"column:weight_class;type:text"`
	NominalMassValue       *float64     `json:"nominal_mass_value,omitempty" gorm:"column:nominal_mass_value"`
	NominalMassUnit        *string      `json:"nominal_mass_unit,omitempty" gorm:"column:nominal_mass_unit;type:text"`
	EMPValue               *float64     `json:"emp_value,omitempty" gorm:"column:emp_value"`
	CreatedAt              time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time    `json:"updated_at" gorm:"not null"`
}

func (Equipment) TableName() string { return "equipment" }

// InspectionWindowDays returns the equipment override when set, else the
// type default.
func (e *Equipment) InspectionWindowDays(t *EquipmentType) int {
	if e.InspectionDaysOverride != nil {
		return *e.InspectionDaysOverride
	}
	if t == nil {
		return 0
	}
	return t.InspectionDays
}

// MeasureSpec is the operating envelope of one equipment for one measure,
// stored in the canonical unit of that measure.
type MeasureSpec struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	EquipmentID snowflake.ID  `json:"equipment_id" gorm:"column:equipment_id;not null;uniqueIndex:ux_equipment_measure_specs,priority:1"`
	Measure     units.Measure `json:"measure" gorm:"column:measure;type:text;not null;uniqueIndex:ux_equipment_measure_specs,priority:2"`
	MinValue    *float64      `json:"min_value,omitempty" gorm:"column:min_value"`
	MaxValue    *float64      `json:"max_value,omitempty" gorm:"column:max_value"`
	Resolution  float64       `json:"resolution" gorm:"column:resolution;not null;default:0"`
}

func (MeasureSpec) TableName() string { return "equipment_measure_specs" }

// TypeDetail bundles a type with its declared measures.
type TypeDetail struct {
	Type     EquipmentType
	Measures map[units.Measure]EquipmentTypeMeasure
}

func (d *TypeDetail) Supports(m units.Measure) bool {
	if d == nil {
		return false
	}
	_, ok := d.Measures[m]
	return ok
}

// MaxError returns the configured max error for m, if any.
func (d *TypeDetail) MaxError(m units.Measure) (float64, bool) {
	if d == nil {
		return 0, false
	}
	tm, ok := d.Measures[m]
	if !ok || tm.MaxError == nil {
		return 0, false
	}
	return *tm.MaxError, true
}

// MeasureSet lists the declared measures.
func (d *TypeDetail) MeasureSet() []units.Measure {
	if d == nil {
		return nil
	}
	out := make([]units.Measure, 0, len(d.Measures))
	for m := range d.Measures {
		out = append(out, m)
	}
	return out
}
