package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ResponseType string

const (
	ResponseTypeBoolean ResponseType = "boolean"
	ResponseTypeText    ResponseType = "text"
	ResponseTypeNumber  ResponseType = "number"
)

func (t ResponseType) Valid() bool {
	switch t {
	case ResponseTypeBoolean, ResponseTypeText, ResponseTypeNumber:
		return true
	default:
		return false
	}
}

// VerificationType is a verification cadence declared for an equipment
// type. FrequencyDays 0 means ad hoc, 1 daily and 30 monthly.
type VerificationType struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EquipmentTypeID snowflake.ID `json:"equipment_type_id" gorm:"column:equipment_type_id;not null;index"`
	Name            string       `json:"name" gorm:"column:name;type:text;not null"`
	FrequencyDays   int          `json:"frequency_days" gorm:"column:frequency_days;not null;default:0"`
	IsActive        bool         `json:"is_active" gorm:"column:is_active;not null"`
	DisplayOrder    int          `json:"order" gorm:"column:display_order;not null;default:0"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (VerificationType) TableName() string { return "verification_types" }

// VerificationItem is a checklist question. The Expected* columns are
// optional; an item without any expectation is never graded.
type VerificationItem struct {
	ID                  snowflake.ID                `json:"id" gorm:"primaryKey"`
	EquipmentTypeID     snowflake.ID                `json:"equipment_type_id" gorm:"column:equipment_type_id;not null;index:ix_verification_items_type,priority:1"`
	VerificationTypeID  snowflake.ID                `json:"verification_type_id" gorm:"column:verification_type_id;not null;index:ix_verification_items_type,priority:2"`
	Item                string                      `json:"item" gorm:"column:item;type:text;not null"`
	ResponseType        ResponseType                `json:"response_type" gorm:"column:response_type;type:text;not null"`
	IsRequired          bool                        `json:"is_required" gorm:"column:is_required;not null"`
	ExpectedBool        *bool                       `json:"expected_bool,omitempty" gorm:"column:expected_bool"`
	ExpectedTextOptions datatypes.JSONSlice[string] `json:"expected_text_options,omitempty" gorm:"column:expected_text_options"`
	ExpectedNumber      *float64                    `json:"expected_number,omitempty" gorm:"column:expected_number"`
	ExpectedMin         *float64                    `json:"expected_min,omitempty" gorm:"column:expected_min"`
	ExpectedMax         *float64                    `json:"expected_max,omitempty" gorm:"column:expected_max"`
	DisplayOrder        int                         `json:"order" gorm:"column:display_order;not null;default:0"`
	IsActive            bool                        `json:"is_active" gorm:"column:is_active;not null"`
}

func (VerificationItem) TableName() string { return "verification_items" }

// VerificationRecord is one evaluated verification. Notes carries the
// caller text followed by the comparison audit note.
type VerificationRecord struct {
	ID                 snowflake.ID   `json:"id" gorm:"primaryKey"`
	EquipmentID        snowflake.ID   `json:"equipment_id" gorm:"column:equipment_id;not null;index:ix_verifications_equipment_day,priority:1"`
	VerificationTypeID snowflake.ID   `json:"verification_type_id" gorm:"column:verification_type_id;not null;index:ix_verifications_equipment_day,priority:2"`
	ReferenceID        *snowflake.ID  `json:"reference_equipment_id,omitempty" gorm:"column:reference_equipment_id"`
	VerifiedAt         time.Time      `json:"verified_at" gorm:"column:verified_at;not null;index:ix_verifications_equipment_day,priority:3"`
	Notes              *string        `json:"notes,omitempty" gorm:"column:notes;type:text"`
	IsOK               bool           `json:"is_ok" gorm:"column:is_ok;not null"`
	ComparisonRule     string         `json:"comparison_rule" gorm:"column:comparison_rule;type:text;not null;default:'none'"`
	ComparisonOK       *bool          `json:"comparison_ok,omitempty" gorm:"column:comparison_ok"`
	ComparisonDetails  datatypes.JSON `json:"comparison_details,omitempty" gorm:"column:comparison_details"`
	CreatedByUserID    *string        `json:"created_by_user_id,omitempty" gorm:"column:created_by_user_id;type:text"`
	CreatedAt          time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"not null"`
}

func (VerificationRecord) TableName() string { return "verifications" }

// VerificationResponse belongs to exactly one record and is removed with it.
// IsOK is nil when the item carries no expectation.
type VerificationResponse struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	VerificationID     snowflake.ID `json:"verification_id" gorm:"column:verification_id;not null;index"`
	VerificationItemID snowflake.ID `json:"verification_item_id" gorm:"column:verification_item_id;not null"`
	ResponseType       ResponseType `json:"response_type" gorm:"column:response_type;type:text;not null"`
	ValueBool          *bool        `json:"value_bool,omitempty" gorm:"column:value_bool"`
	ValueText          *string      `json:"value_text,omitempty" gorm:"column:value_text;type:text"`
	ValueNumber        *float64     `json:"value_number,omitempty" gorm:"column:value_number"`
	IsOK               *bool        `json:"is_ok,omitempty" gorm:"column:is_ok"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
}

func (VerificationResponse) TableName() string { return "verification_responses" }
