package domain

import (
	"fmt"
	"strings"
)

// WeightClass is an OIML R111 accuracy class.
type WeightClass string

const (
	WeightClassE1 WeightClass = "E1"
	WeightClassE2 WeightClass = "E2"
	WeightClassF1 WeightClass = "F1"
	WeightClassF2 WeightClass = "F2"
	WeightClassM1 WeightClass = "M1"
	WeightClassM2 WeightClass = "M2"
	WeightClassM3 WeightClass = "M3"
)

func ParseWeightClass(raw string) (WeightClass, bool) {
	c := WeightClass(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case WeightClassE1, WeightClassE2, WeightClassF1, WeightClassF2,
		WeightClassM1, WeightClassM2, WeightClassM3:
		return c, true
	default:
		return "", false
	}
}

// Profile is the family-specific view of an Equipment row. The columns
// backing it are nullable, the profile is not: it is either generic or a
// complete weight reference.
type Profile interface {
	profile()
}

type GenericProfile struct{}

func (GenericProfile) profile() {}

// WeightReferenceProfile describes a reference weight ("pesa").
type WeightReferenceProfile struct {
	// Class is empty when the weight only carries an explicit EMP.
	Class        WeightClass
	NominalValue float64
	NominalUnit  string
	EMP          *float64
}

func (WeightReferenceProfile) profile() {}

// Profile derives the tagged view. Rows that carry no nominal mass are
// generic; rows with weight columns are weight references.
func (e *Equipment) Profile() Profile {
	if e.NominalMassValue == nil {
		return GenericProfile{}
	}
	p := WeightReferenceProfile{
		NominalValue: *e.NominalMassValue,
		NominalUnit:  "g",
		EMP:          e.EMPValue,
	}
	if e.NominalMassUnit != nil && strings.TrimSpace(*e.NominalMassUnit) != "" {
		p.NominalUnit = strings.TrimSpace(*e.NominalMassUnit)
	}
	if e.WeightClass != nil {
		if c, ok := ParseWeightClass(*e.WeightClass); ok {
			p.Class = c
		}
	}
	return p
}

// ValidateProfile rejects weight columns that do not form a complete
// weight-reference profile.
func (e *Equipment) ValidateProfile() error {
	hasClass := e.WeightClass != nil && strings.TrimSpace(*e.WeightClass) != ""
	hasUnit := e.NominalMassUnit != nil && strings.TrimSpace(*e.NominalMassUnit) != ""
	if e.NominalMassValue == nil {
		if hasClass || hasUnit || e.EMPValue != nil {
			return fmt.Errorf("%w: weight fields require nominal_mass_value", ErrInvalidProfile)
		}
		return nil
	}
	if *e.NominalMassValue <= 0 {
		return fmt.Errorf("%w: nominal_mass_value must be positive", ErrInvalidProfile)
	}
	if hasClass {
		if _, ok := ParseWeightClass(*e.WeightClass); !ok {
			return fmt.Errorf("%w: unknown weight_class %q", ErrInvalidProfile, *e.WeightClass)
		}
	}
	if e.EMPValue != nil && *e.EMPValue < 0 {
		return fmt.Errorf("%w: emp_value cannot be negative", ErrInvalidProfile)
	}
	return nil
}
