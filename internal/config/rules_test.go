package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesConfigHolderDefaults(t *testing.T) {
	holder, err := NewRulesConfigHolder(Config{RulesConfigPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, rules.DefaultThresholds(), holder.Thresholds())
}

func TestRulesConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("thresholds:\n  tape_max_difference_mm: 1.5\n  temperature_tolerance_f: 0.4\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verification.yml"), body, 0o600))

	holder, err := NewRulesConfigHolder(Config{RulesConfigPath: dir})
	require.NoError(t, err)

	got := holder.Thresholds()
	assert.Equal(t, 1.5, got.TapeMaxDifferenceMM)
	assert.Equal(t, 0.4, got.TemperatureToleranceF)
	assert.Equal(t, rules.DefaultThresholds().KarlFischerMaxFactor, got.KarlFischerMaxFactor)
}

func TestRulesConfigHolderMergesSingleOverride(t *testing.T) {
	dir := t.TempDir()
	body := []byte("thresholds:\n  tape_max_difference_mm: 1.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verification.yml"), body, 0o600))

	holder, err := NewRulesConfigHolder(Config{RulesConfigPath: dir})
	require.NoError(t, err)

	want := rules.DefaultThresholds()
	want.TapeMaxDifferenceMM = 1.5
	assert.Equal(t, want, holder.Thresholds())
}

func TestRulesConfigHolderRejectsInvalidRange(t *testing.T) {
	dir := t.TempDir()
	body := []byte("thresholds:\n  karl_fischer_min_factor: 6\n  karl_fischer_max_factor: 5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verification.yml"), body, 0o600))

	_, err := NewRulesConfigHolder(Config{RulesConfigPath: dir})
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "UTC", Config{}.Location().String())
	assert.Equal(t, "UTC", Config{TimeZone: "Not/AZone"}.Location().String())
	assert.Equal(t, "America/Bogota", Config{TimeZone: "America/Bogota"}.Location().String())
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *RulesConfigHolder
	assert.Equal(t, rules.DefaultThresholds(), holder.Thresholds())
}

func TestRulesConfigHolderOnReload(t *testing.T) {
	holder := NewStaticRulesConfigHolder(rules.DefaultThresholds())
	var got []bool
	holder.OnReload(func(ok bool) { got = append(got, ok) })

	holder.notifyReload(true)
	holder.notifyReload(false)
	assert.Equal(t, []bool{true, false}, got)

	var nilHolder *RulesConfigHolder
	nilHolder.OnReload(func(bool) {})
	assert.Equal(t, rules.DefaultThresholds(), nilHolder.Thresholds())
}
