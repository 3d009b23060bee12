package rules

import (
	"fmt"
	"math"

	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

// evaluateTape compares the averages of two or three readings per tape.
// Two readings are only enough when they agree.
func evaluateTape(in Input) (Outcome, error) {
	r := in.Readings
	underTest, err := tapeSeries(r.TapeUnderTest, r.TapeUnderTestUnit, "tape_under_test")
	if err != nil {
		return Outcome{}, err
	}
	reference, err := tapeSeries(r.TapeReference, r.TapeReferenceUnit, "tape_reference")
	if err != nil {
		return Outcome{}, err
	}

	spec := in.spec(units.MeasureLength)
	for i, v := range underTest {
		if err := spec.Validate(v); err != nil {
			return Outcome{}, domain.Invalid(err, fmt.Sprintf("tape_under_test[%d]", i), fmt.Sprintf("tape reading %.3f mm is outside the instrument spec", v))
		}
	}

	avgUnderTest := average(underTest)
	avgReference := average(reference)
	diff := math.Abs(avgReference - avgUnderTest)
	limit := in.Thresholds.TapeMaxDifferenceMM
	passed := diff < limit

	out := Outcome{
		Passed: passed,
		Details: map[string]any{
			"under_test_mm":     underTest,
			"reference_mm":      reference,
			"avg_under_test_mm": avgUnderTest,
			"avg_reference_mm":  avgReference,
			"difference_mm":     diff,
			"max_difference_mm": limit,
		},
	}
	if !passed {
		out.Message = fmt.Sprintf("tape average difference %.3f mm is not below %.3f mm", diff, limit)
	}
	out.Note = fmt.Sprintf("Tape comparison: avg under test %.3f mm, avg reference %.3f mm, difference %.3f mm (limit < %.3f mm): %s",
		avgUnderTest, avgReference, diff, limit, verdictWord(passed))
	return out, nil
}

func tapeSeries(values []float64, unit, field string) ([]float64, error) {
	switch len(values) {
	case 0:
		return nil, missing(field)
	case 2, 3:
	default:
		return nil, domain.Invalid(domain.ErrInsufficientReadings, field, fmt.Sprintf("%s needs 2 or 3 readings, got %d", field, len(values)))
	}

	mm := make([]float64, len(values))
	for i, v := range values {
		l, err := units.NewLength(v, unit)
		if err != nil {
			return nil, domain.Invalid(err, field+"_unit", fmt.Sprintf("invalid length %v %s", v, unit))
		}
		mm[i] = l.Millimeters()
	}
	if len(mm) == 2 && mm[0] != mm[1] {
		return nil, domain.Invalid(domain.ErrInsufficientReadings, field, "a third reading is required when the first two differ")
	}
	return mm, nil
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
