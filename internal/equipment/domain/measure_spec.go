package domain

import (
	"fmt"
	"math"
)

const resolutionTolerance = 1e-9

// MatchesResolution reports whether value is an integer multiple of
// resolution. A non-positive resolution always matches.
func MatchesResolution(value, resolution float64) bool {
	if resolution <= 0 {
		return true
	}
	q := value / resolution
	diff := math.Abs(q - math.Round(q))
	return diff <= resolutionTolerance || diff <= resolutionTolerance*math.Abs(q)
}

// Validate checks a canonical value against the envelope. A nil spec
// accepts anything.
func (s *MeasureSpec) Validate(value float64) error {
	if s == nil {
		return nil
	}
	if s.MinValue != nil && value < *s.MinValue {
		return fmt.Errorf("%w: %g < %g (%s)", ErrBelowMinimum, value, *s.MinValue, s.Measure)
	}
	if s.MaxValue != nil && value > *s.MaxValue {
		return fmt.Errorf("%w: %g > %g (%s)", ErrAboveMaximum, value, *s.MaxValue, s.Measure)
	}
	if !MatchesResolution(value, s.Resolution) {
		return fmt.Errorf("%w: %g is not a multiple of %g (%s)", ErrResolutionMismatch, value, s.Resolution, s.Measure)
	}
	return nil
}
