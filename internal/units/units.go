// Package units converts physical quantities between the units accepted on
// verification payloads and the canonical unit stored for each measure:
// Celsius for temperature, grams for weight, millimeters for length and
// kilopascal for pressure. API gravity, percent p/v and relative humidity
// have a single accepted unit and convert by identity.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Measure identifies a physical quantity an instrument can report.
type Measure string

const (
	MeasureTemperature      Measure = "temperature"
	MeasureWeight           Measure = "weight"
	MeasureLength           Measure = "length"
	MeasureAPI              Measure = "api"
	MeasurePercentPV        Measure = "percent_pv"
	MeasureRelativeHumidity Measure = "relative_humidity"
	MeasurePressure         Measure = "pressure"
)

var (
	ErrUnsupportedUnit    = errors.New("unsupported_unit")
	ErrInvalidMagnitude   = errors.New("invalid_magnitude")
	ErrUnsupportedMeasure = errors.New("unsupported_measure")
)

// AbsoluteZeroC is the lowest physically possible temperature in Celsius.
const AbsoluteZeroC = -273.15

// ParseMeasure accepts the stored measure codes.
func ParseMeasure(raw string) (Measure, error) {
	m := Measure(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MeasureTemperature, MeasureWeight, MeasureLength, MeasureAPI,
		MeasurePercentPV, MeasureRelativeHumidity, MeasurePressure:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMeasure, raw)
	}
}

// CanonicalUnit returns the unit every stored value of the measure uses.
func (m Measure) CanonicalUnit() string {
	switch m {
	case MeasureTemperature:
		return "c"
	case MeasureWeight:
		return "g"
	case MeasureLength:
		return "mm"
	case MeasurePressure:
		return "kpa"
	case MeasureAPI:
		return "api"
	case MeasurePercentPV:
		return "%p/v"
	case MeasureRelativeHumidity:
		return "%rh"
	default:
		return ""
	}
}

// normalizeUnit folds case and removes every whitespace rune.
func normalizeUnit(unit string) string {
	return strings.Join(strings.Fields(strings.ToLower(unit)), "")
}

type linear struct {
	scale  float64
	offset float64
}

func (l linear) toCanonical(v float64) float64   { return v*l.scale + l.offset }
func (l linear) fromCanonical(v float64) float64 { return (v - l.offset) / l.scale }

var temperatureUnits = map[string]linear{
	"c":          {scale: 1},
	"°c":         {scale: 1},
	"ºc":         {scale: 1},
	"celsius":    {scale: 1},
	"degc":       {scale: 1},
	"f":          {scale: 5.0 / 9.0, offset: -32 * 5.0 / 9.0},
	"°f":         {scale: 5.0 / 9.0, offset: -32 * 5.0 / 9.0},
	"ºf":         {scale: 5.0 / 9.0, offset: -32 * 5.0 / 9.0},
	"fahrenheit": {scale: 5.0 / 9.0, offset: -32 * 5.0 / 9.0},
	"degf":       {scale: 5.0 / 9.0, offset: -32 * 5.0 / 9.0},
	"k":          {scale: 1, offset: AbsoluteZeroC},
	"kelvin":     {scale: 1, offset: AbsoluteZeroC},
}

var weightUnits = map[string]linear{
	"mg":         {scale: 0.001},
	"miligramo":  {scale: 0.001},
	"miligramos": {scale: 0.001},
	"g":          {scale: 1},
	"gr":         {scale: 1},
	"gram":       {scale: 1},
	"grams":      {scale: 1},
	"gramo":      {scale: 1},
	"gramos":     {scale: 1},
	"kg":         {scale: 1000},
	"kilogramo":  {scale: 1000},
	"kilogramos": {scale: 1000},
	"lb":         {scale: 453.59237},
	"lbs":        {scale: 453.59237},
	"oz":         {scale: 28.349523125},
}

var lengthUnits = map[string]linear{
	"mm":   {scale: 1},
	"cm":   {scale: 10},
	"m":    {scale: 1000},
	"in":   {scale: 25.4},
	"inch": {scale: 25.4},
	"ft":   {scale: 304.8},
}

var pressureUnits = map[string]linear{
	"kpa": {scale: 1},
	"pa":  {scale: 0.001},
	"bar": {scale: 100},
	"psi": {scale: 6.894757293168361},
}

var identityUnits = map[Measure]map[string]struct{}{
	MeasureAPI: {
		"api": {}, "°api": {}, "ºapi": {},
	},
	MeasurePercentPV: {
		"%p/v": {}, "p/v": {}, "pv": {}, "%pv": {},
	},
	MeasureRelativeHumidity: {
		"%rh": {}, "rh": {}, "%hr": {}, "hr": {},
	},
}

func lookup(table map[string]linear, unit string) (linear, error) {
	conv, ok := table[normalizeUnit(unit)]
	if !ok {
		return linear{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return conv, nil
}

// Temperature is a temperature held in Celsius.
type Temperature struct{ celsius float64 }

// NewTemperature builds a Temperature from a value expressed in unit.
func NewTemperature(value float64, unit string) (Temperature, error) {
	conv, err := lookup(temperatureUnits, unit)
	if err != nil {
		return Temperature{}, err
	}
	c := conv.toCanonical(value)
	if math.IsNaN(c) || c < AbsoluteZeroC {
		return Temperature{}, fmt.Errorf("%w: %.4f %s is below absolute zero", ErrInvalidMagnitude, value, unit)
	}
	return Temperature{celsius: c}, nil
}

func (t Temperature) Celsius() float64 { return t.celsius }

// In expresses the temperature in unit.
func (t Temperature) In(unit string) (float64, error) {
	conv, err := lookup(temperatureUnits, unit)
	if err != nil {
		return 0, err
	}
	return conv.fromCanonical(t.celsius), nil
}

// Weight is a mass held in grams.
type Weight struct{ grams float64 }

func NewWeight(value float64, unit string) (Weight, error) {
	conv, err := lookup(weightUnits, unit)
	if err != nil {
		return Weight{}, err
	}
	g := conv.toCanonical(value)
	if math.IsNaN(g) || g < 0 {
		return Weight{}, fmt.Errorf("%w: negative mass %.6f %s", ErrInvalidMagnitude, value, unit)
	}
	return Weight{grams: g}, nil
}

func (w Weight) Grams() float64 { return w.grams }

func (w Weight) In(unit string) (float64, error) {
	conv, err := lookup(weightUnits, unit)
	if err != nil {
		return 0, err
	}
	return conv.fromCanonical(w.grams), nil
}

// Length is a distance held in millimeters.
type Length struct{ millimeters float64 }

func NewLength(value float64, unit string) (Length, error) {
	conv, err := lookup(lengthUnits, unit)
	if err != nil {
		return Length{}, err
	}
	mm := conv.toCanonical(value)
	if math.IsNaN(mm) || mm < 0 {
		return Length{}, fmt.Errorf("%w: negative length %.4f %s", ErrInvalidMagnitude, value, unit)
	}
	return Length{millimeters: mm}, nil
}

func (l Length) Millimeters() float64 { return l.millimeters }

func (l Length) In(unit string) (float64, error) {
	conv, err := lookup(lengthUnits, unit)
	if err != nil {
		return 0, err
	}
	return conv.fromCanonical(l.millimeters), nil
}

// Normalize converts value expressed in unit into the canonical unit of m.
func Normalize(m Measure, value float64, unit string) (float64, error) {
	switch m {
	case MeasureTemperature:
		t, err := NewTemperature(value, unit)
		return t.Celsius(), err
	case MeasureWeight:
		w, err := NewWeight(value, unit)
		return w.Grams(), err
	case MeasureLength:
		l, err := NewLength(value, unit)
		return l.Millimeters(), err
	case MeasurePressure:
		conv, err := lookup(pressureUnits, unit)
		if err != nil {
			return 0, err
		}
		return conv.toCanonical(value), nil
	case MeasureAPI, MeasurePercentPV, MeasureRelativeHumidity:
		if err := checkIdentityUnit(m, unit); err != nil {
			return 0, err
		}
		return value, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMeasure, m)
	}
}

// Denormalize converts a canonical value of m back into unit.
func Denormalize(m Measure, canonical float64, unit string) (float64, error) {
	switch m {
	case MeasureTemperature:
		return Temperature{celsius: canonical}.In(unit)
	case MeasureWeight:
		return Weight{grams: canonical}.In(unit)
	case MeasureLength:
		return Length{millimeters: canonical}.In(unit)
	case MeasurePressure:
		conv, err := lookup(pressureUnits, unit)
		if err != nil {
			return 0, err
		}
		return conv.fromCanonical(canonical), nil
	case MeasureAPI, MeasurePercentPV, MeasureRelativeHumidity:
		if err := checkIdentityUnit(m, unit); err != nil {
			return 0, err
		}
		return canonical, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMeasure, m)
	}
}

func checkIdentityUnit(m Measure, unit string) error {
	if _, ok := identityUnits[m][normalizeUnit(unit)]; !ok {
		return fmt.Errorf("%w: %q for %s", ErrUnsupportedUnit, unit, m)
	}
	return nil
}

// FahrenheitToCelsius converts without validation; used by rule formulas.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5.0 / 9.0 }

// CelsiusToFahrenheit converts without validation; used by rule formulas.
func CelsiusToFahrenheit(c float64) float64 { return c*9.0/5.0 + 32 }

// Aliases lists every accepted unit alias of m, mainly for tests and docs.
func Aliases(m Measure) []string {
	var table map[string]linear
	switch m {
	case MeasureTemperature:
		table = temperatureUnits
	case MeasureWeight:
		table = weightUnits
	case MeasureLength:
		table = lengthUnits
	case MeasurePressure:
		table = pressureUnits
	default:
		out := make([]string, 0, len(identityUnits[m]))
		for alias := range identityUnits[m] {
			out = append(out, alias)
		}
		return out
	}
	out := make([]string, 0, len(table))
	for alias := range table {
		out = append(out, alias)
	}
	return out
}
