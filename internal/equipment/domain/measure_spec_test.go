package domain

import (
	"errors"
	"testing"

	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestMatchesResolution(t *testing.T) {
	cases := []struct {
		value      float64
		resolution float64
		want       bool
	}{
		{20.2, 0.1, true},
		{20.25, 0.1, false},
		{20.25, 0.05, true},
		{0.3, 0.1, true},
		{1234.5, 0.5, true},
		{1234.6, 0.5, false},
		{7.123, 0, true},
		{7.123, -1, true},
		{-4.2, 0.2, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchesResolution(tc.value, tc.resolution), "%g / %g", tc.value, tc.resolution)
	}
}

func TestMeasureSpecValidate(t *testing.T) {
	var nilSpec *MeasureSpec
	assert.NoError(t, nilSpec.Validate(1e9))

	spec := &MeasureSpec{
		Measure:    units.MeasureTemperature,
		MinValue:   ptr(-10),
		MaxValue:   ptr(110),
		Resolution: 0.1,
	}
	assert.NoError(t, spec.Validate(20.2))
	assert.NoError(t, spec.Validate(-10))
	assert.NoError(t, spec.Validate(110))
	assert.True(t, errors.Is(spec.Validate(-10.1), ErrBelowMinimum))
	assert.True(t, errors.Is(spec.Validate(110.1), ErrAboveMaximum))
	assert.True(t, errors.Is(spec.Validate(20.25), ErrResolutionMismatch))

	open := &MeasureSpec{Measure: units.MeasureLength}
	assert.NoError(t, open.Validate(123456.789))
}

func TestProfile(t *testing.T) {
	generic := &Equipment{}
	assert.IsType(t, GenericProfile{}, generic.Profile())
	assert.NoError(t, generic.ValidateProfile())

	class := "f1"
	unit := "g"
	weight := &Equipment{WeightClass: &class, NominalMassValue: ptr(100), NominalMassUnit: &unit}
	assert.NoError(t, weight.ValidateProfile())
	p, ok := weight.Profile().(WeightReferenceProfile)
	assert.True(t, ok)
	assert.Equal(t, WeightClassF1, p.Class)
	assert.Equal(t, 100.0, p.NominalValue)

	orphan := &Equipment{WeightClass: &class}
	assert.ErrorIs(t, orphan.ValidateProfile(), ErrInvalidProfile)

	bad := "Z9"
	unknown := &Equipment{WeightClass: &bad, NominalMassValue: ptr(1)}
	assert.ErrorIs(t, unknown.ValidateProfile(), ErrInvalidProfile)
}
