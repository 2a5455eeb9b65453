package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rathix/sitefront/internal/route"
)

// Load reads and parses the sites YAML file at path. A missing or
// malformed file returns a nil config with an error. Per-site validation
// errors are all collected so a broken config reports every problem at
// once; the daemon treats any of them as fatal at startup.
func Load(path string) (*Config, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read config file: %w", err)}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, []error{fmt.Errorf("failed to parse config YAML: %w", err)}
	}

	var errs []error
	if len(cfg.Sites) == 0 {
		errs = append(errs, fmt.Errorf("config defines no sites"))
	}

	for i, site := range cfg.Sites {
		if strings.TrimSpace(site.Pattern) == "" {
			errs = append(errs, fmt.Errorf("sites[%d].pattern: required field missing", i))
		} else if _, err := route.ParsePattern(site.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("sites[%d].pattern: %w", i, err))
		}

		if site.AssetsDir == "" && site.DevTarget == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: needs assetsDir, devTarget, or both", i))
		}
		if site.AssetsDir != "" {
			if info, err := os.Stat(site.AssetsDir); err != nil {
				errs = append(errs, fmt.Errorf("sites[%d].assetsDir: %w", i, err))
			} else if !info.IsDir() {
				errs = append(errs, fmt.Errorf("sites[%d].assetsDir: %q is not a directory", i, site.AssetsDir))
			}
		}

		if site.DevTarget != "" &&
			!strings.HasPrefix(site.DevTarget, "http://") &&
			!strings.HasPrefix(site.DevTarget, "https://") {
			errs = append(errs, fmt.Errorf("sites[%d].devTarget: %q must start with http:// or https://", i, site.DevTarget))
		}

		if len(site.DevCommand) > 0 {
			if site.DevTarget == "" {
				errs = append(errs, fmt.Errorf("sites[%d].devCommand: requires a devTarget to probe", i))
			}
			if site.WorkingDir == "" {
				errs = append(errs, fmt.Errorf("sites[%d].workingDir: required when devCommand is set", i))
			} else if info, err := os.Stat(site.WorkingDir); err != nil {
				errs = append(errs, fmt.Errorf("sites[%d].workingDir: %w", i, err))
			} else if !info.IsDir() {
				errs = append(errs, fmt.Errorf("sites[%d].workingDir: %q is not a directory", i, site.WorkingDir))
			}
		}
	}

	if _, _, _, err := cfg.Health.Durations(); err != nil {
		errs = append(errs, err)
	}

	return &cfg, errs
}
