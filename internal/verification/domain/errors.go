package domain

import (
	"errors"
	"strings"
)

// Error kinds. Every error the service returns unwraps to exactly one of
// these so the transport layer can map it without knowing the rule.
var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrPreconditionFailed = errors.New("precondition_failed")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
)

var (
	ErrEquipmentNotFound          = errors.New("equipment_not_found")
	ErrEquipmentTypeNotFound      = errors.New("equipment_type_not_found")
	ErrVerificationTypeNotFound   = errors.New("verification_type_not_found")
	ErrVerificationItemNotFound   = errors.New("verification_item_not_found")
	ErrVerificationNotFound       = errors.New("verification_not_found")
	ErrReferenceNotFound          = errors.New("reference_equipment_not_found")
	ErrInvalidID                  = errors.New("invalid_id")
	ErrAmbiguousVerificationType  = errors.New("ambiguous_verification_type")
	ErrDuplicateItem              = errors.New("duplicate_item")
	ErrMissingRequiredItem        = errors.New("missing_required_item")
	ErrResponseTypeMismatch       = errors.New("response_type_mismatch")
	ErrMissingResponseValue       = errors.New("missing_response_value")
	ErrMissingReading             = errors.New("missing_reading")
	ErrInsufficientReadings       = errors.New("insufficient_readings")
	ErrInvalidVolume              = errors.New("invalid_volume")
	ErrZeroAverageFactor          = errors.New("zero_average_factor")
	ErrReferenceRequired          = errors.New("reference_required")
	ErrSelfReference              = errors.New("self_reference")
	ErrInvalidReference           = errors.New("invalid_reference")
	ErrNoValidCalibration         = errors.New("no_valid_calibration")
	ErrCalibrationExpired         = errors.New("calibration_expired")
	ErrInspectionMissing          = errors.New("inspection_missing")
	ErrReferenceInspectionMissing = errors.New("reference_inspection_missing")
	ErrVerificationExists         = errors.New("verification_exists")
	ErrSubmissionInProgress       = errors.New("submission_in_progress")
	ErrRateLimited                = errors.New("rate_limited")
)

// Error carries a kind, a machine code, the offending field and a human
// message. It unwraps to both the kind and the cause.
type Error struct {
	Kind    error
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Field != "" {
		b.WriteString(" [")
		b.WriteString(e.Field)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind error, cause error, field, message string) *Error {
	code := kind.Error()
	if cause != nil {
		code = rootCode(cause)
	}
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Code: code, Field: field, Message: message, Err: cause}
}

// rootCode returns the text of the innermost wrapped error, which is the
// sentinel code for every error built in this module.
func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func NotFound(cause error, field, message string) *Error {
	return newError(ErrNotFound, cause, field, message)
}

func Invalid(cause error, field, message string) *Error {
	return newError(ErrInvalidRequest, cause, field, message)
}

func PreconditionFailed(cause error, field, message string) *Error {
	return newError(ErrPreconditionFailed, cause, field, message)
}

func Conflict(cause error, message string) *Error {
	return newError(ErrConflict, cause, "", message)
}

func Forbidden(cause error, message string) *Error {
	return newError(ErrForbidden, cause, "", message)
}

// AsError extracts the carrier, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}
