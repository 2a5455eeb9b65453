package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration parsed from the sites YAML file.
type Config struct {
	Sites  []SiteConfig `yaml:"sites"  json:"sites"`
	Health HealthConfig `yaml:"health" json:"health"`
}

// SiteConfig defines one mountable frontend site.
type SiteConfig struct {
	Pattern      string   `yaml:"pattern"      json:"pattern"`
	AssetsDir    string   `yaml:"assetsDir"    json:"assetsDir"`
	FallbackFile string   `yaml:"fallbackFile" json:"fallbackFile"`
	DevTarget    string   `yaml:"devTarget"    json:"devTarget"`
	DevCommand   []string `yaml:"devCommand"   json:"devCommand"`
	WorkingDir   string   `yaml:"workingDir"   json:"workingDir"`
}

// HealthConfig controls dev server supervision timing.
type HealthConfig struct {
	Interval       string `yaml:"interval"       json:"interval"`
	StartupTimeout string `yaml:"startupTimeout" json:"startupTimeout"`
	GracePeriod    string `yaml:"gracePeriod"    json:"gracePeriod"`
}

// Durations parses the health timing fields, applying defaults for any
// that are unset.
func (h HealthConfig) Durations() (interval, startupTimeout, grace time.Duration, err error) {
	interval, err = parseDuration(h.Interval, 5*time.Second, "health.interval")
	if err != nil {
		return 0, 0, 0, err
	}
	startupTimeout, err = parseDuration(h.StartupTimeout, 30*time.Second, "health.startupTimeout")
	if err != nil {
		return 0, 0, 0, err
	}
	grace, err = parseDuration(h.GracePeriod, 10*time.Second, "health.gracePeriod")
	if err != nil {
		return 0, 0, 0, err
	}
	return interval, startupTimeout, grace, nil
}

func parseDuration(s string, fallback time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, s)
	}
	return d, nil
}
