package main

import (
	"log/slog"
	"testing"
)

func TestConfigPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		envs     map[string]string
		expected string
	}{
		{
			name:     "default value",
			args:     []string{},
			envs:     map[string]string{},
			expected: ":8080",
		},
		{
			name:     "env var precedence",
			args:     []string{},
			envs:     map[string]string{"LISTEN_ADDR": ":9090"},
			expected: ":9090",
		},
		{
			name:     "flag precedence over env",
			args:     []string{"--listen-addr", ":9999"},
			envs:     map[string]string{"LISTEN_ADDR": ":9090"},
			expected: ":9999",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}
			cfg, err := loadConfig(tc.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.ListenAddr != tc.expected {
				t.Errorf("expected listen addr %q, got %q", tc.expected, cfg.ListenAddr)
			}
		})
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	if _, err := loadConfig([]string{"--grace-period", "soon"}); err == nil {
		t.Error("expected error for unparseable grace period")
	}
	if _, err := loadConfig([]string{"--health-interval", "-5s"}); err == nil {
		t.Error("expected error for negative health interval")
	}
}

func TestLoadConfigRejectsBadLogFormat(t *testing.T) {
	if _, err := loadConfig([]string{"--log-format", "xml"}); err == nil {
		t.Error("expected error for unsupported log format")
	}
}

func TestLogFormatSelection(t *testing.T) {
	cases := []struct {
		format string
		isJSON bool
	}{
		{"json", true},
		{"text", false},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			logger := setupLogger(tc.format)
			_, ok := logger.Handler().(*slog.JSONHandler)
			if ok != tc.isJSON {
				t.Errorf("format %q: JSON handler = %v, want %v", tc.format, ok, tc.isJSON)
			}
		})
	}
}
