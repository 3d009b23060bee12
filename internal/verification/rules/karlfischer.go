package rules

import (
	"fmt"
	"math"

	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

// evaluateKarlFischer checks two titrant factor determinations
// (mg of water per ml). Both factors must fall inside the accepted range
// and agree within the relative error limit.
func evaluateKarlFischer(in Input) (Outcome, error) {
	kf := in.Readings.KarlFischer
	if kf == nil {
		return Outcome{}, missing("karl_fischer")
	}
	fields := []struct {
		name  string
		value *float64
	}{
		{"karl_fischer.weight1_mg", kf.Weight1Mg},
		{"karl_fischer.volume1_ml", kf.Volume1Ml},
		{"karl_fischer.weight2_mg", kf.Weight2Mg},
		{"karl_fischer.volume2_ml", kf.Volume2Ml},
	}
	for _, f := range fields {
		if f.value == nil {
			return Outcome{}, missing(f.name)
		}
	}
	if *kf.Volume1Ml <= 0 {
		return Outcome{}, domain.Invalid(domain.ErrInvalidVolume, "karl_fischer.volume1_ml", "volume must be positive")
	}
	if *kf.Volume2Ml <= 0 {
		return Outcome{}, domain.Invalid(domain.ErrInvalidVolume, "karl_fischer.volume2_ml", "volume must be positive")
	}

	f1 := *kf.Weight1Mg / *kf.Volume1Ml
	f2 := *kf.Weight2Mg / *kf.Volume2Ml
	avg := (f1 + f2) / 2
	if avg == 0 {
		return Outcome{}, domain.Invalid(domain.ErrZeroAverageFactor, "karl_fischer", "average factor is zero")
	}
	relErr := math.Abs(f1-f2) / math.Abs(avg) * 100

	t := in.Thresholds
	inRange := func(f float64) bool { return f >= t.KarlFischerMinFactor && f <= t.KarlFischerMaxFactor }
	passed := inRange(f1) && inRange(f2) && relErr < t.KarlFischerMaxRelativeErrorPct

	out := Outcome{
		Passed: passed,
		Details: map[string]any{
			"factor1":                f1,
			"factor2":                f2,
			"average_factor":         avg,
			"relative_error_pct":     relErr,
			"min_factor":             t.KarlFischerMinFactor,
			"max_factor":             t.KarlFischerMaxFactor,
			"max_relative_error_pct": t.KarlFischerMaxRelativeErrorPct,
		},
	}
	switch {
	case !inRange(f1):
		out.Message = fmt.Sprintf("factor 1 %.4f mg/ml outside [%.2f, %.2f]", f1, t.KarlFischerMinFactor, t.KarlFischerMaxFactor)
	case !inRange(f2):
		out.Message = fmt.Sprintf("factor 2 %.4f mg/ml outside [%.2f, %.2f]", f2, t.KarlFischerMinFactor, t.KarlFischerMaxFactor)
	case !passed:
		out.Message = fmt.Sprintf("relative error %.3f%% is not below %.2f%%", relErr, t.KarlFischerMaxRelativeErrorPct)
	}
	out.Note = fmt.Sprintf("Karl Fischer comparison: factor 1 %.4f mg/ml, factor 2 %.4f mg/ml, average %.4f mg/ml, relative error %.3f%% (range [%.2f, %.2f], limit < %.2f%%): %s",
		f1, f2, avg, relErr, t.KarlFischerMinFactor, t.KarlFischerMaxFactor, t.KarlFischerMaxRelativeErrorPct, verdictWord(passed))
	return out, nil
}
