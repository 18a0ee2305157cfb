package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/netcmdb/netcmdb/pkg/logging"
)

// SimulationOverrides carries per-request option overrides. Nil fields keep
// the configured value.
type SimulationOverrides struct {
	MaxPropagationDepth *int     `mapstructure:"max_propagation_depth"`
	ConfidenceThreshold *float64 `mapstructure:"confidence_threshold"`
	IncludeInactive     *bool    `mapstructure:"include_inactive"`
}

// DecodeOptions turns a loose option map (CLI flags, JSON bodies) into typed
// overrides. Strings such as "0.8" or "3" are accepted.
func DecodeOptions(input map[string]interface{}) (SimulationOverrides, error) {
	var overrides SimulationOverrides
	if len(input) == 0 {
		return overrides, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &overrides,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return overrides, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return overrides, fmt.Errorf("failed to decode simulation options: %w", err)
	}

	return overrides, nil
}

// WithOverrides returns a copy of the config with the overrides applied
func (c *AnalysisConfig) WithOverrides(o SimulationOverrides) *AnalysisConfig {
	out := *c
	if o.MaxPropagationDepth != nil {
		out.MaxPropagationDepth = *o.MaxPropagationDepth
	}
	if o.ConfidenceThreshold != nil {
		out.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.IncludeInactive != nil {
		out.IncludeInactive = *o.IncludeInactive
	}
	return &out
}

// LoadFile merges a YAML (or JSON) config file over the receiver. Keys absent
// from the file keep their current values.
func (c *AnalysisConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	logging.Config.Debug("Loaded config file %s (%d keys)", path, len(raw))
	return nil
}
