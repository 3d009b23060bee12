package rules

import (
	"fmt"
	"math"

	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

// floatEpsilon absorbs representation noise on inclusive bounds.
const floatEpsilon = 1e-9

// Thresholds are the acceptance limits of every rule. They are loaded from
// the rules configuration and fall back to DefaultThresholds.
type Thresholds struct {
	TemperatureToleranceF          float64 `mapstructure:"temperature_tolerance_f" json:"temperature_tolerance_f"`
	TapeMaxDifferenceMM            float64 `mapstructure:"tape_max_difference_mm" json:"tape_max_difference_mm"`
	HydrometerMaxAPIDifference     float64 `mapstructure:"hydrometer_max_api_difference" json:"hydrometer_max_api_difference"`
	KarlFischerMinFactor           float64 `mapstructure:"karl_fischer_min_factor" json:"karl_fischer_min_factor"`
	KarlFischerMaxFactor           float64 `mapstructure:"karl_fischer_max_factor" json:"karl_fischer_max_factor"`
	KarlFischerMaxRelativeErrorPct float64 `mapstructure:"karl_fischer_max_relative_error_pct" json:"karl_fischer_max_relative_error_pct"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureToleranceF:          0.5,
		TapeMaxDifferenceMM:            2.0,
		HydrometerMaxAPIDifference:     0.5,
		KarlFischerMinFactor:           4.5,
		KarlFischerMaxFactor:           5.5,
		KarlFischerMaxRelativeErrorPct: 2.0,
	}
}

// WithDefaults replaces unset or non-positive limits by their defaults.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TemperatureToleranceF <= 0 {
		t.TemperatureToleranceF = d.TemperatureToleranceF
	}
	if t.TapeMaxDifferenceMM <= 0 {
		t.TapeMaxDifferenceMM = d.TapeMaxDifferenceMM
	}
	if t.HydrometerMaxAPIDifference <= 0 {
		t.HydrometerMaxAPIDifference = d.HydrometerMaxAPIDifference
	}
	if t.KarlFischerMinFactor <= 0 || t.KarlFischerMaxFactor <= t.KarlFischerMinFactor {
		t.KarlFischerMinFactor = d.KarlFischerMinFactor
		t.KarlFischerMaxFactor = d.KarlFischerMaxFactor
	}
	if t.KarlFischerMaxRelativeErrorPct <= 0 {
		t.KarlFischerMaxRelativeErrorPct = d.KarlFischerMaxRelativeErrorPct
	}
	return t
}

// TemperatureToleranceC is the temperature tolerance expressed as a
// Celsius difference.
func (t Thresholds) TemperatureToleranceC() float64 {
	return t.TemperatureToleranceF * 5.0 / 9.0
}

// Input is everything a rule may look at. Rules never touch storage.
type Input struct {
	Kind          Kind
	FrequencyDays int
	Readings      domain.Readings
	// Specs are the working instrument's measurement specs by measure.
	Specs       map[units.Measure]equipmentdomain.MeasureSpec
	WorkingType *equipmentdomain.TypeDetail
	Reference   *equipmentdomain.Equipment
	Thresholds  Thresholds
}

// Outcome is the result of one evaluation. Message explains a failure,
// Note is the audit line appended to the verification notes.
type Outcome struct {
	Kind    Kind
	Passed  bool
	Message string
	Note    string
	Details map[string]any
}

// Evaluate runs the rule named by in.Kind. Malformed readings are returned
// as invalid-request errors; a completed comparison never errors.
func Evaluate(in Input) (Outcome, error) {
	in.Thresholds = in.Thresholds.WithDefaults()

	var (
		out Outcome
		err error
	)
	switch in.Kind {
	case KindNone, "":
		return Outcome{Kind: KindNone, Passed: true}, nil
	case KindTemperature:
		out, err = evaluateTemperature(in)
	case KindTape:
		out, err = evaluateTape(in)
	case KindBalance:
		out, err = evaluateBalance(in)
	case KindHydrometer:
		out, err = evaluateHydrometer(in)
	case KindKarlFischer:
		out, err = evaluateKarlFischer(in)
	default:
		return Outcome{}, fmt.Errorf("unknown comparison rule %q", in.Kind)
	}
	if err != nil {
		return Outcome{}, err
	}
	out.Kind = in.Kind
	return out, nil
}

func (in Input) spec(m units.Measure) *equipmentdomain.MeasureSpec {
	if in.Specs == nil {
		return nil
	}
	s, ok := in.Specs[m]
	if !ok {
		return nil
	}
	return &s
}

func verdictWord(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func withinInclusive(diff, limit float64) bool {
	return math.Abs(diff) <= limit+floatEpsilon
}

func missing(field string) error {
	return domain.Invalid(domain.ErrMissingReading, field, field+" is required")
}
