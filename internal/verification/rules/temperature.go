package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

type temperaturePair struct {
	label      string
	underTestC float64
	referenceC float64
}

func evaluateTemperature(in Input) (Outcome, error) {
	pairs, mode, err := temperaturePairs(in)
	if err != nil {
		return Outcome{}, err
	}

	spec := in.spec(units.MeasureTemperature)
	for _, p := range pairs {
		if err := spec.Validate(p.underTestC); err != nil {
			return Outcome{}, domain.Invalid(err, p.label, fmt.Sprintf("%s reading under test %.3f C is outside the instrument spec", p.label, p.underTestC))
		}
	}

	tolC := in.Thresholds.TemperatureToleranceC()
	out := Outcome{Passed: true, Details: map[string]any{
		"mode":        mode,
		"tolerance_c": tolC,
		"tolerance_f": in.Thresholds.TemperatureToleranceF,
	}}

	var lines []string
	levels := make([]map[string]any, 0, len(pairs))
	for _, p := range pairs {
		delta := p.referenceC - p.underTestC
		ok := withinInclusive(delta, tolC)
		levels = append(levels, map[string]any{
			"level":        p.label,
			"under_test_c": p.underTestC,
			"reference_c":  p.referenceC,
			"delta_c":      delta,
			"passed":       ok,
		})
		lines = append(lines, fmt.Sprintf("%s: under test %.3f C, reference %.3f C, delta %.3f C", p.label, p.underTestC, p.referenceC, delta))
		if !ok && out.Passed {
			out.Passed = false
			out.Message = fmt.Sprintf("temperature difference %.3f C at %s exceeds tolerance %.3f C (%.1f F)", math.Abs(delta), p.label, tolC, in.Thresholds.TemperatureToleranceF)
		}
	}
	out.Details["levels"] = levels
	out.Note = fmt.Sprintf("Temperature comparison (%s, tolerance %.3f C): %s: %s", mode, tolC, strings.Join(lines, "; "), verdictWord(out.Passed))
	return out, nil
}

// temperaturePairs picks the reading shape: three levels on a monthly
// cadence, otherwise a Fahrenheit pair or a unit-tagged pair.
func temperaturePairs(in Input) ([]temperaturePair, string, error) {
	r := in.Readings
	if in.FrequencyDays == MonthlyFrequencyDays {
		levels := []struct {
			name  string
			level *domain.TemperatureLevel
		}{{"high", r.High}, {"mid", r.Mid}, {"low", r.Low}}

		pairs := make([]temperaturePair, 0, len(levels))
		for _, l := range levels {
			if l.level == nil || l.level.UnderTest == nil || l.level.Reference == nil {
				return nil, "", missing(l.name)
			}
			ut, err := celsius(*l.level.UnderTest, l.level.UnderTestUnit, l.name+".under_test_unit")
			if err != nil {
				return nil, "", err
			}
			ref, err := celsius(*l.level.Reference, l.level.ReferenceUnit, l.name+".reference_unit")
			if err != nil {
				return nil, "", err
			}
			pairs = append(pairs, temperaturePair{label: l.name, underTestC: ut, referenceC: ref})
		}
		return pairs, "monthly", nil
	}

	if r.ReadingUnderTestF != nil || r.ReferenceReadingF != nil {
		if r.ReadingUnderTestF == nil {
			return nil, "", missing("reading_under_test_f")
		}
		if r.ReferenceReadingF == nil {
			return nil, "", missing("reference_reading_f")
		}
		ut, err := celsius(*r.ReadingUnderTestF, "F", "reading_under_test_f")
		if err != nil {
			return nil, "", err
		}
		ref, err := celsius(*r.ReferenceReadingF, "F", "reference_reading_f")
		if err != nil {
			return nil, "", err
		}
		return []temperaturePair{{label: "single", underTestC: ut, referenceC: ref}}, "single", nil
	}

	if r.ReadingUnderTest == nil {
		return nil, "", missing("reading_under_test")
	}
	if r.ReferenceReading == nil {
		return nil, "", missing("reference_reading")
	}
	ut, err := celsius(*r.ReadingUnderTest, r.ReadingUnderTestUnit, "reading_under_test_unit")
	if err != nil {
		return nil, "", err
	}
	ref, err := celsius(*r.ReferenceReading, r.ReferenceReadingUnit, "reference_reading_unit")
	if err != nil {
		return nil, "", err
	}
	return []temperaturePair{{label: "single", underTestC: ut, referenceC: ref}}, "single", nil
}

func celsius(value float64, unit, field string) (float64, error) {
	t, err := units.NewTemperature(value, unit)
	if err != nil {
		return 0, domain.Invalid(err, field, fmt.Sprintf("invalid temperature %v %s", value, unit))
	}
	return t.Celsius(), nil
}
