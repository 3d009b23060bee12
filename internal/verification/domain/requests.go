package domain

import (
	"time"

	"github.com/smallbiznis/metrolab/pkg/db/pagination"
)

// ResponseInput answers one checklist item. Exactly one Value* field is
// expected, matching ResponseType.
type ResponseInput struct {
	VerificationItemID string       `json:"verification_item_id"`
	ResponseType       ResponseType `json:"response_type"`
	ValueBool          *bool        `json:"value_bool,omitempty"`
	ValueText          *string      `json:"value_text,omitempty"`
	ValueNumber        *float64     `json:"value_number,omitempty"`
}

// TemperatureLevel is one of the high / mid / low monthly comparison points.
type TemperatureLevel struct {
	UnderTest     *float64 `json:"under_test"`
	UnderTestUnit string   `json:"under_test_unit"`
	Reference     *float64 `json:"reference"`
	ReferenceUnit string   `json:"reference_unit"`
}

type KarlFischerReadings struct {
	Weight1Mg *float64 `json:"weight1_mg"`
	Volume1Ml *float64 `json:"volume1_ml"`
	Weight2Mg *float64 `json:"weight2_mg"`
	Volume2Ml *float64 `json:"volume2_ml"`
}

// Readings holds every reading shape a comparison rule can consume. Each
// rule reads only the fields of its own shape.
type Readings struct {
	ReadingUnderTest     *float64 `json:"reading_under_test,omitempty"`
	ReadingUnderTestUnit string   `json:"reading_under_test_unit,omitempty"`
	ReferenceReading     *float64 `json:"reference_reading,omitempty"`
	ReferenceReadingUnit string   `json:"reference_reading_unit,omitempty"`

	ReadingUnderTestF *float64 `json:"reading_under_test_f,omitempty"`
	ReferenceReadingF *float64 `json:"reference_reading_f,omitempty"`

	High *TemperatureLevel `json:"high,omitempty"`
	Mid  *TemperatureLevel `json:"mid,omitempty"`
	Low  *TemperatureLevel `json:"low,omitempty"`

	TapeUnderTest     []float64 `json:"tape_under_test,omitempty"`
	TapeUnderTestUnit string    `json:"tape_under_test_unit,omitempty"`
	TapeReference     []float64 `json:"tape_reference,omitempty"`
	TapeReferenceUnit string    `json:"tape_reference_unit,omitempty"`

	HydrometerUnderTestAPI   *float64 `json:"hydrometer_under_test_api,omitempty"`
	HydrometerUnderTestTempF *float64 `json:"hydrometer_under_test_temp_f,omitempty"`
	HydrometerReferenceAPI   *float64 `json:"hydrometer_reference_api,omitempty"`
	HydrometerReferenceTempF *float64 `json:"hydrometer_reference_temp_f,omitempty"`

	KarlFischer *KarlFischerReadings `json:"karl_fischer,omitempty"`
}

// Payload is shared by create and update.
type Payload struct {
	VerificationTypeID   string          `json:"verification_type_id,omitempty"`
	VerifiedAt           *time.Time      `json:"verified_at,omitempty"`
	Notes                *string         `json:"notes,omitempty"`
	ReferenceEquipmentID string          `json:"reference_equipment_id,omitempty"`
	Readings             Readings        `json:"readings"`
	Responses            []ResponseInput `json:"responses"`
}

type CreateRequest struct {
	EquipmentID     string
	ReplaceExisting bool
	Payload
}

type UpdateRequest struct {
	ID string
	Payload
}

type ListRequest struct {
	EquipmentID        string `uri:"id"`
	VerificationTypeID string `form:"verification_type_id"`
	pagination.Pagination
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// Response is a persisted record with its responses and the comparison
// outcome of the evaluation that produced it.
type Response struct {
	ID                   string         `json:"id"`
	EquipmentID          string         `json:"equipment_id"`
	VerificationTypeID   string         `json:"verification_type_id"`
	ReferenceEquipmentID *string        `json:"reference_equipment_id,omitempty"`
	VerifiedAt           time.Time      `json:"verified_at"`
	Notes                *string        `json:"notes,omitempty"`
	IsOK                 bool           `json:"is_ok"`
	ComparisonRule       string         `json:"comparison_rule"`
	ComparisonOK         *bool          `json:"comparison_ok,omitempty"`
	ComparisonMessage    string         `json:"comparison_message,omitempty"`
	ComparisonNote       string         `json:"comparison_note,omitempty"`
	CreatedByUserID      *string        `json:"created_by_user_id,omitempty"`
	Responses            []ResponseView `json:"responses"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

type ResponseView struct {
	ID                 string       `json:"id"`
	VerificationItemID string       `json:"verification_item_id"`
	ResponseType       ResponseType `json:"response_type"`
	ValueBool          *bool        `json:"value_bool,omitempty"`
	ValueText          *string      `json:"value_text,omitempty"`
	ValueNumber        *float64     `json:"value_number,omitempty"`
	IsOK               *bool        `json:"is_ok,omitempty"`
}
