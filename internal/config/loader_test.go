package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	assetsDir := t.TempDir()
	path := writeConfig(t, `
sites:
  - pattern: "/*"
    assetsDir: `+assetsDir+`
    fallbackFile: index.html
    devTarget: http://localhost:5173
health:
  interval: 2s
  gracePeriod: 5s
`)

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cfg.Sites) != 1 {
		t.Fatalf("expected 1 site, got %d", len(cfg.Sites))
	}
	if cfg.Sites[0].FallbackFile != "index.html" {
		t.Errorf("unexpected fallback %q", cfg.Sites[0].FallbackFile)
	}

	interval, startup, grace, err := cfg.Health.Durations()
	if err != nil {
		t.Fatalf("unexpected duration error: %v", err)
	}
	if interval != 2*time.Second {
		t.Errorf("expected 2s interval, got %v", interval)
	}
	if startup != 30*time.Second {
		t.Errorf("expected default startup timeout, got %v", startup)
	}
	if grace != 5*time.Second {
		t.Errorf("expected 5s grace, got %v", grace)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, errs := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg != nil {
		t.Error("expected nil config for missing file")
	}
	if len(errs) == 0 {
		t.Error("expected an error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "sites: [pattern: {{")
	cfg, errs := Load(path)
	if cfg != nil {
		t.Error("expected nil config for malformed YAML")
	}
	if len(errs) == 0 {
		t.Error("expected a parse error")
	}
}

func TestLoadRejectsSiteWithoutSource(t *testing.T) {
	path := writeConfig(t, `
sites:
  - pattern: "/*"
`)
	_, errs := Load(path)
	if len(errs) == 0 {
		t.Fatal("expected error for site with neither assetsDir nor devTarget")
	}
	if !strings.Contains(errs[0].Error(), "assetsDir") {
		t.Errorf("unexpected error %v", errs[0])
	}
}

func TestLoadRejectsUnreadableAssetsDir(t *testing.T) {
	path := writeConfig(t, `
sites:
  - pattern: "/*"
    assetsDir: /no/such/dir
`)
	_, errs := Load(path)
	if len(errs) == 0 {
		t.Error("expected error for absent assets directory")
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	assetsDir := t.TempDir()
	path := writeConfig(t, `
sites:
  - pattern: "admin/*"
    assetsDir: `+assetsDir+`
`)
	_, errs := Load(path)
	if len(errs) == 0 {
		t.Error("expected error for pattern without leading slash")
	}
}

func TestLoadRejectsDevCommandWithoutWorkingDir(t *testing.T) {
	path := writeConfig(t, `
sites:
  - pattern: "/*"
    devTarget: http://localhost:5173
    devCommand: ["npm", "run", "dev"]
`)
	_, errs := Load(path)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "workingDir") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected workingDir error, got %v", errs)
	}
}

func TestLoadRejectsNonHTTPDevTarget(t *testing.T) {
	path := writeConfig(t, `
sites:
  - pattern: "/*"
    devTarget: localhost:5173
`)
	_, errs := Load(path)
	if len(errs) == 0 {
		t.Error("expected error for devTarget without scheme")
	}
}

func TestLoadRejectsEmptyConfig(t *testing.T) {
	path := writeConfig(t, "")
	_, errs := Load(path)
	if len(errs) == 0 {
		t.Error("expected error for config without sites")
	}
}

func TestDurationsRejectNegative(t *testing.T) {
	h := HealthConfig{Interval: "-5s"}
	if _, _, _, err := h.Durations(); err == nil {
		t.Error("expected error for negative interval")
	}
}
