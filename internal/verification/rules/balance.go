package rules

import (
	"errors"
	"fmt"
	"math"

	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/emp"
)

// evaluateBalance weighs a reference weight on the balance under test.
// The allowed error is the weight's EMP, or the balance type's declared
// max error when the weight has none.
func evaluateBalance(in Input) (Outcome, error) {
	r := in.Readings
	if r.ReadingUnderTest == nil {
		return Outcome{}, missing("reading_under_test")
	}
	unit := r.ReadingUnderTestUnit
	if unit == "" {
		unit = units.MeasureWeight.CanonicalUnit()
	}
	reading, err := units.NewWeight(*r.ReadingUnderTest, unit)
	if err != nil {
		return Outcome{}, domain.Invalid(err, "reading_under_test_unit", fmt.Sprintf("invalid weight %v %s", *r.ReadingUnderTest, unit))
	}

	if in.Reference == nil {
		return Outcome{}, domain.Invalid(domain.ErrReferenceRequired, "reference_equipment_id", "balance comparison needs a reference weight")
	}
	profile, ok := in.Reference.Profile().(equipmentdomain.WeightReferenceProfile)
	if !ok {
		return Outcome{}, domain.Invalid(domain.ErrInvalidReference, "reference_equipment_id", "reference has no nominal mass")
	}
	nominal, err := units.NewWeight(profile.NominalValue, profile.NominalUnit)
	if err != nil {
		return Outcome{}, domain.Invalid(err, "reference_equipment_id", "reference nominal mass has an invalid unit")
	}

	allowed, source, err := allowedBalanceError(in)
	if err != nil {
		return Outcome{}, err
	}

	diff := math.Abs(nominal.Grams() - reading.Grams())
	passed := diff <= allowed+floatEpsilon*allowed
	out := Outcome{
		Passed: passed,
		Details: map[string]any{
			"nominal_g":      nominal.Grams(),
			"reading_g":      reading.Grams(),
			"difference_g":   diff,
			"allowed_g":      allowed,
			"allowed_source": source,
		},
	}
	if !passed {
		out.Message = fmt.Sprintf("balance difference %.6f g exceeds allowed %.6f g (%s)", diff, allowed, source)
	}
	out.Note = fmt.Sprintf("Balance comparison: nominal %.6f g, reading %.6f g, difference %.6f g, allowed %.6f g from %s: %s",
		nominal.Grams(), reading.Grams(), diff, allowed, source, verdictWord(passed))
	return out, nil
}

func allowedBalanceError(in Input) (float64, string, error) {
	allowed, err := emp.Resolve(in.Reference)
	if err == nil {
		return allowed, "reference_emp", nil
	}
	if !errors.Is(err, emp.ErrEmpNotFound) {
		return 0, "", domain.Invalid(err, "reference_equipment_id", err.Error())
	}
	if in.WorkingType != nil {
		if maxErr, ok := in.WorkingType.MaxError(units.MeasureWeight); ok && maxErr > 0 {
			return maxErr, "type_max_error", nil
		}
	}
	return 0, "", domain.Invalid(emp.ErrEmpNotFound, "reference_equipment_id", "no EMP for the reference weight and no max error for the balance type")
}
