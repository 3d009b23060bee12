// Package emp resolves the maximum permissible error of reference weights.
package emp

import (
	"errors"
	"fmt"
	"math"

	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
)

var ErrEmpNotFound = errors.New("emp_not_found")

const nominalTolerance = 1e-9

// mpeMilligrams is the OIML R111 table of maximum permissible errors in
// milligrams, indexed by nominal mass in grams. Masses outside the table
// are not interpolated.
var mpeMilligrams = map[float64]map[equipmentdomain.WeightClass]float64{
	200: {"E1": 0.10, "E2": 0.30, "F1": 1.0, "F2": 3.0, "M1": 10, "M2": 30, "M3": 100},
	100: {"E1": 0.05, "E2": 0.16, "F1": 0.50, "F2": 1.6, "M1": 5.0, "M2": 16, "M3": 50},
	50:  {"E1": 0.030, "E2": 0.10, "F1": 0.30, "F2": 1.0, "M1": 3.0, "M2": 10, "M3": 30},
	20:  {"E1": 0.025, "E2": 0.080, "F1": 0.25, "F2": 0.8, "M1": 2.5, "M2": 8.0, "M3": 25},
	10:  {"E1": 0.020, "E2": 0.060, "F1": 0.20, "F2": 0.6, "M1": 2.0, "M2": 6.0, "M3": 20},
	5:   {"E1": 0.016, "E2": 0.050, "F1": 0.16, "F2": 0.5, "M1": 1.6, "M2": 5.0, "M3": 16},
	2:   {"E1": 0.012, "E2": 0.040, "F1": 0.12, "F2": 0.4, "M1": 1.2, "M2": 4.0, "M3": 12},
	1:   {"E1": 0.010, "E2": 0.030, "F1": 0.10, "F2": 0.3, "M1": 1.0, "M2": 3.0, "M3": 10},
}

// Lookup returns the tabulated EMP in grams for class and nominal grams.
func Lookup(class equipmentdomain.WeightClass, nominalGrams float64) (float64, error) {
	for nominal, row := range mpeMilligrams {
		if math.Abs(nominal-nominalGrams) > nominalTolerance {
			continue
		}
		mg, ok := row[class]
		if !ok {
			break
		}
		return mg / 1000, nil
	}
	return 0, fmt.Errorf("%w: class %q nominal %g g", ErrEmpNotFound, class, nominalGrams)
}

// Resolve returns the EMP of a reference weight in grams: the explicit
// emp_value when positive, otherwise the table entry for its class and
// nominal mass.
func Resolve(e *equipmentdomain.Equipment) (float64, error) {
	if e == nil {
		return 0, ErrEmpNotFound
	}
	if e.EMPValue != nil && *e.EMPValue > 0 {
		return *e.EMPValue, nil
	}
	profile, ok := e.Profile().(equipmentdomain.WeightReferenceProfile)
	if !ok || profile.Class == "" {
		return 0, fmt.Errorf("%w: equipment %s has no weight class", ErrEmpNotFound, e.ID)
	}
	nominal, err := units.NewWeight(profile.NominalValue, profile.NominalUnit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmpNotFound, err)
	}
	return Lookup(profile.Class, nominal.Grams())
}
