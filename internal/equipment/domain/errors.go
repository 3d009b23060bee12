package domain

import "errors"

var (
	ErrNotFound           = errors.New("equipment_not_found")
	ErrTypeNotFound       = errors.New("equipment_type_not_found")
	ErrInvalidProfile     = errors.New("invalid_equipment_profile")
	ErrBelowMinimum       = errors.New("below_minimum")
	ErrAboveMaximum       = errors.New("above_maximum")
	ErrResolutionMismatch = errors.New("resolution_mismatch")
)
