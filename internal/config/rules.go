package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"github.com/spf13/viper"
)

// RulesConfigHolder serves the comparison thresholds read from
// verification.yml and swaps them when the file changes.
type RulesConfigHolder struct {
	current  atomic.Value // holds rules.Thresholds
	onReload atomic.Value // holds func(bool)
}

// OnReload registers fn to run after every reload attempt with its result.
func (h *RulesConfigHolder) OnReload(fn func(ok bool)) {
	if h == nil || fn == nil {
		return
	}
	h.onReload.Store(fn)
}

func (h *RulesConfigHolder) notifyReload(ok bool) {
	if fn, _ := h.onReload.Load().(func(bool)); fn != nil {
		fn(ok)
	}
}

// NewStaticRulesConfigHolder serves fixed thresholds without a file.
func NewStaticRulesConfigHolder(t rules.Thresholds) *RulesConfigHolder {
	holder := &RulesConfigHolder{}
	holder.current.Store(t.WithDefaults())
	return holder
}

func NewRulesConfigHolder(cfg Config) (*RulesConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("verification")
	v.SetConfigType("yml")
	if cfg.RulesConfigPath != "" {
		v.AddConfigPath(cfg.RulesConfigPath)
	}
	v.AddConfigPath("/etc/metrolab")
	v.AddConfigPath(".")

	v.SetEnvPrefix("METROLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := rules.DefaultThresholds()
	v.SetDefault("thresholds.temperature_tolerance_f", defaults.TemperatureToleranceF)
	v.SetDefault("thresholds.tape_max_difference_mm", defaults.TapeMaxDifferenceMM)
	v.SetDefault("thresholds.hydrometer_max_api_difference", defaults.HydrometerMaxAPIDifference)
	v.SetDefault("thresholds.karl_fischer_min_factor", defaults.KarlFischerMinFactor)
	v.SetDefault("thresholds.karl_fischer_max_factor", defaults.KarlFischerMaxFactor)
	v.SetDefault("thresholds.karl_fischer_max_relative_error_pct", defaults.KarlFischerMaxRelativeErrorPct)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	current, err := readThresholds(v)
	if err != nil {
		return nil, err
	}

	holder := &RulesConfigHolder{}
	holder.current.Store(current)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readThresholds(v)
			if err != nil {
				log.Printf("[verification-config] invalid config ignored: %v", err)
				holder.notifyReload(false)
				return
			}
			holder.current.Store(updated)
			log.Printf("[verification-config] reloaded from %s", e.Name)
			holder.notifyReload(true)
		})
	}

	return holder, nil
}

func (h *RulesConfigHolder) Thresholds() rules.Thresholds {
	if h == nil {
		return rules.DefaultThresholds()
	}
	return h.current.Load().(rules.Thresholds)
}

func readThresholds(v *viper.Viper) (rules.Thresholds, error) {
	// GetFloat64 merges file values with the registered defaults key by key,
	// so a file may override a single tolerance.
	t := rules.Thresholds{
		TemperatureToleranceF:          v.GetFloat64("thresholds.temperature_tolerance_f"),
		TapeMaxDifferenceMM:            v.GetFloat64("thresholds.tape_max_difference_mm"),
		HydrometerMaxAPIDifference:     v.GetFloat64("thresholds.hydrometer_max_api_difference"),
		KarlFischerMinFactor:           v.GetFloat64("thresholds.karl_fischer_min_factor"),
		KarlFischerMaxFactor:           v.GetFloat64("thresholds.karl_fischer_max_factor"),
		KarlFischerMaxRelativeErrorPct: v.GetFloat64("thresholds.karl_fischer_max_relative_error_pct"),
	}
	if err := validateThresholds(t); err != nil {
		return rules.Thresholds{}, err
	}
	return t, nil
}

func validateThresholds(t rules.Thresholds) error {
	if t.TemperatureToleranceF <= 0 {
		return errors.New("thresholds.temperature_tolerance_f must be positive")
	}
	if t.TapeMaxDifferenceMM <= 0 {
		return errors.New("thresholds.tape_max_difference_mm must be positive")
	}
	if t.HydrometerMaxAPIDifference <= 0 {
		return errors.New("thresholds.hydrometer_max_api_difference must be positive")
	}
	if t.KarlFischerMinFactor <= 0 || t.KarlFischerMaxFactor <= t.KarlFischerMinFactor {
		return errors.New("thresholds.karl_fischer factor range is invalid")
	}
	if t.KarlFischerMaxRelativeErrorPct <= 0 {
		return errors.New("thresholds.karl_fischer_max_relative_error_pct must be positive")
	}
	return nil
}
