// Package config carries the engine's tunable surface: the label lookup
// table that gives free-text component labels their semantics, plus fetch
// behavior for the market context builder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LabelTable maps canonical component label strings to their semantic roles.
// Label text is contractually significant in payoff structures: only the
// labels listed here are recognized, anything else is inert. This is a known
// limitation of the authoring format, not an oversight.
type LabelTable struct {
	// Operators maps a comparison component's label to a comparison
	// operator. Only ">=" ("At or Above") is currently interpreted by the
	// condition evaluator.
	Operators map[string]string `yaml:"operators"`

	// ThresholdLabel marks a comparison/barrier component as the condition
	// threshold carrier.
	ThresholdLabel string `yaml:"threshold_label"`
}

// Operator resolves a component label to a comparison operator, ok=false for
// unrecognized labels.
func (lt LabelTable) Operator(label string) (string, bool) {
	op, ok := lt.Operators[label]
	return op, ok
}

// IsThresholdLabel reports whether the label designates the threshold
// component of a condition chain.
func (lt LabelTable) IsThresholdLabel(label string) bool {
	return label == lt.ThresholdLabel
}

// Config is the engine configuration.
type Config struct {
	Labels LabelTable `yaml:"labels"`

	// DefaultThreshold substitutes for an unparseable threshold value on a
	// recognized threshold component.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// MaturitySection names the section whose triggered action values sum
	// into the total payout.
	MaturitySection string `yaml:"maturity_section"`

	// ParallelFetch enables concurrent per-underlying price lookups in the
	// market context builder. Correctness does not depend on it; lookups
	// are independent and merged before the context is released.
	ParallelFetch bool `yaml:"parallel_fetch"`

	// FetchRateLimit caps price-history lookups per second when parallel
	// fetch is enabled. Zero means unlimited.
	FetchRateLimit float64 `yaml:"fetch_rate_limit"`
}

// DefaultConfig returns the production label table and thresholds.
func DefaultConfig() Config {
	return Config{
		Labels: LabelTable{
			Operators: map[string]string{
				"At or Above": ">=",
			},
			ThresholdLabel: "Capital Protection Barrier",
		},
		DefaultThreshold: 70.0,
		MaturitySection:  "maturity",
		ParallelFetch:    false,
		FetchRateLimit:   0,
	}
}

// Load reads a config file, layering it over DefaultConfig so partial files
// only override what they mention.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Labels.Operators == nil {
		cfg.Labels.Operators = DefaultConfig().Labels.Operators
	}
	return cfg, nil
}
