package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Only the keys present in the
// file override the defaults, so a minimal file can set just the locale.
type fileConfig struct {
	Aliases             map[string]Field `yaml:"aliases"`
	Locale              Locale           `yaml:"locale"`
	DateFormats         []string         `yaml:"date_formats"`
	FutureToleranceDays *int             `yaml:"future_tolerance_days"`
	DedupMode           DedupMode        `yaml:"dedup_mode"`
	DedupKey            []Field          `yaml:"dedup_key"`
	DedupKeyFallback    []Field          `yaml:"dedup_key_fallback"`
	Rules               []Rule           `yaml:"rules"`
	Aggregates          []AggregateSpec  `yaml:"aggregates"`
}

// Load reads a YAML configuration file and merges it over Default().
// The merged configuration is validated before being returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML configuration from memory. See Load.
func LoadBytes(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &ConfigError{Section: "yaml", Detail: err.Error()}
	}

	cfg := Default()
	if fc.Aliases != nil {
		cfg.Aliases = fc.Aliases
	}
	if fc.Locale != "" {
		cfg.Locale = fc.Locale
	}
	if fc.DateFormats != nil {
		cfg.DateFormats = fc.DateFormats
	}
	if fc.FutureToleranceDays != nil {
		cfg.FutureToleranceDays = *fc.FutureToleranceDays
	}
	if fc.DedupMode != "" {
		cfg.DedupMode = fc.DedupMode
	}
	if fc.DedupKey != nil {
		cfg.DedupKey = fc.DedupKey
	}
	if fc.DedupKeyFallback != nil {
		cfg.DedupKeyFallback = fc.DedupKeyFallback
	}
	if fc.Rules != nil {
		cfg.Rules = fc.Rules
	}
	if fc.Aggregates != nil {
		cfg.Aggregates = fc.Aggregates
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
