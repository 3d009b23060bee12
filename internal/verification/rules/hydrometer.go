package rules

import (
	"fmt"
	"math"

	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

// Crude-oil constants of the petroleum measurement tables (API MPMS 11.1,
// 2004) and the glass hydrometer thermal expansion correction.
const (
	waterDensity60F = 999.016 // kg/m3
	crudeK0         = 341.0957
	crudeK1         = 0.0
	crudeK2         = 0.0
	baseTempF       = 60.0068749
	delta60         = 0.01374979547

	hydrometerGlassA = 0.00001278
	hydrometerGlassB = 0.0000000062

	ctlMaxIterations = 15
	ctlConvergence   = 1e-4
)

// its90to68 converts a scaled ITS-90 temperature to the IPTS-68 scale the
// tables were fitted on.
var its90to68 = []float64{-0.148759, -0.267408, 1.080760, 1.269056, -4.089591, -1.871251, 7.438081, -3.536296}

func evaluateHydrometer(in Input) (Outcome, error) {
	r := in.Readings
	fields := []struct {
		name  string
		value *float64
	}{
		{"hydrometer_under_test_api", r.HydrometerUnderTestAPI},
		{"hydrometer_under_test_temp_f", r.HydrometerUnderTestTempF},
		{"hydrometer_reference_api", r.HydrometerReferenceAPI},
		{"hydrometer_reference_temp_f", r.HydrometerReferenceTempF},
	}
	for _, f := range fields {
		if f.value == nil {
			return Outcome{}, missing(f.name)
		}
	}

	underTest60, err := api60Reading(*r.HydrometerUnderTestAPI, *r.HydrometerUnderTestTempF, "hydrometer_under_test")
	if err != nil {
		return Outcome{}, err
	}
	reference60, err := api60Reading(*r.HydrometerReferenceAPI, *r.HydrometerReferenceTempF, "hydrometer_reference")
	if err != nil {
		return Outcome{}, err
	}

	diff := underTest60 - reference60
	limit := in.Thresholds.HydrometerMaxAPIDifference
	passed := withinInclusive(diff, limit)

	out := Outcome{
		Passed: passed,
		Details: map[string]any{
			"under_test_api_60": underTest60,
			"reference_api_60":  reference60,
			"difference_api":    diff,
			"max_difference":    limit,
		},
	}
	if !passed {
		out.Message = fmt.Sprintf("API@60F difference %.3f exceeds ±%.2f", diff, limit)
	}
	out.Note = fmt.Sprintf("Hydrometer comparison: under test %.3f API@60F (observed %.2f at %.1f F), reference %.3f API@60F (observed %.2f at %.1f F), difference %.3f (limit ±%.2f): %s",
		underTest60, *r.HydrometerUnderTestAPI, *r.HydrometerUnderTestTempF,
		reference60, *r.HydrometerReferenceAPI, *r.HydrometerReferenceTempF,
		diff, limit, verdictWord(passed))
	return out, nil
}

func api60Reading(api, tempF float64, field string) (float64, error) {
	if _, err := units.NewTemperature(tempF, "F"); err != nil {
		return 0, domain.Invalid(err, field+"_temp_f", fmt.Sprintf("invalid temperature %v F", tempF))
	}
	v, err := API60(api, tempF)
	if err != nil {
		return 0, domain.Invalid(err, field+"_api", err.Error())
	}
	return v, nil
}

// API60 corrects an observed API gravity read on a glass hydrometer at
// tempF to API gravity at 60 F.
func API60(observedAPI, tempF float64) (float64, error) {
	if observedAPI <= -131.5 {
		return 0, fmt.Errorf("observed API %v out of range", observedAPI)
	}
	rhoObs := 141.5 * waterDensity60F / (observedAPI + 131.5)

	dtGlass := tempF - 60
	rhoObs *= 1 - hydrometerGlassA*dtGlass - hydrometerGlassB*dtGlass*dtGlass

	t68 := toIPTS68F(tempF)
	dt := t68 - baseTempF

	rho60 := rhoObs
	for i := 0; i < ctlMaxIterations; i++ {
		alpha := (crudeK0+crudeK1*rho60)/(rho60*rho60) + crudeK2
		ctl := math.Exp(-alpha * dt * (1 + 0.8*alpha*(dt+delta60)))
		next := rhoObs / ctl
		if math.Abs(next-rho60) < ctlConvergence {
			rho60 = next
			break
		}
		rho60 = next
	}
	if rho60 <= 0 || math.IsNaN(rho60) || math.IsInf(rho60, 0) {
		return 0, fmt.Errorf("density correction diverged for API %v at %v F", observedAPI, tempF)
	}
	return 141.5*waterDensity60F/rho60 - 131.5, nil
}

func toIPTS68F(tempF float64) float64 {
	t90 := units.FahrenheitToCelsius(tempF)
	tau := t90 / 630
	var sum, pow float64 = 0, tau
	for _, a := range its90to68 {
		sum += a * pow
		pow *= tau
	}
	return units.CelsiusToFahrenheit(t90 - sum)
}
