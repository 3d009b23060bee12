// Package rules holds the comparison rules that decide whether a working
// instrument still agrees with its reference. Rule selection happens once
// per evaluation through Select; evaluation is a pure function of Input.
package rules

import (
	"strings"
	"unicode"

	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MonthlyFrequencyDays is the verification cadence that switches the
// temperature rule to three-point mode and enables the hydrometer rule.
const MonthlyFrequencyDays = 30

type Kind string

const (
	KindNone        Kind = "none"
	KindTemperature Kind = "temperature"
	KindTape        Kind = "tape"
	KindBalance     Kind = "balance"
	KindHydrometer  Kind = "hydrometer"
	KindKarlFischer Kind = "karl_fischer"
)

// RequiresReference reports whether the rule compares against another
// instrument.
func (k Kind) RequiresReference() bool {
	return k != KindNone && k != ""
}

// Family groups equipment type names that share a comparison behaviour.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyThermometer
	FamilyTape
	FamilyBalance
	FamilyHydrometer
	FamilyKarlFischer
	FamilyWeight
)

var registry = map[string]Family{
	"termometro":                 FamilyThermometer,
	"termometro de vidrio":       FamilyThermometer,
	"termometro electronico":     FamilyThermometer,
	"termometro electronico tl1": FamilyThermometer,
	"termometro electronico tp7": FamilyThermometer,
	"termometro electronico tp9": FamilyThermometer,
	"tl1":                        FamilyThermometer,
	"tp7":                        FamilyThermometer,
	"tp9":                        FamilyThermometer,
	"cinta metrica":              FamilyTape,
	"cinta metrica de aforo":     FamilyTape,
	"cinta metrica con plomada":  FamilyTape,
	"balanza analitica":          FamilyBalance,
	"hidrometro":                 FamilyHydrometer,
	"titulador karl fischer":     FamilyKarlFischer,
	"titulador de karl fischer":  FamilyKarlFischer,
	"pesa":                       FamilyWeight,
	"pesa patron":                FamilyWeight,
	"pesas":                      FamilyWeight,
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName lower-cases, strips accents and collapses whitespace so that
// "Termómetro  de Vidrio" and "termometro de vidrio" compare equal.
func FoldName(name string) string {
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func FamilyOf(typeName string) Family {
	return registry[FoldName(typeName)]
}

// Select resolves the rule for a working instrument. Reference
// instruments and unregistered types get KindNone.
func Select(typeName string, role equipmentdomain.Role, measures []units.Measure, frequencyDays int) Kind {
	if role != equipmentdomain.RoleWorking {
		return KindNone
	}
	switch FamilyOf(typeName) {
	case FamilyThermometer:
		if hasMeasure(measures, units.MeasureTemperature) {
			return KindTemperature
		}
	case FamilyTape:
		return KindTape
	case FamilyBalance:
		return KindBalance
	case FamilyHydrometer:
		if frequencyDays == MonthlyFrequencyDays {
			return KindHydrometer
		}
	case FamilyKarlFischer:
		return KindKarlFischer
	}
	return KindNone
}

func hasMeasure(measures []units.Measure, m units.Measure) bool {
	for _, candidate := range measures {
		if candidate == m {
			return true
		}
	}
	return false
}
