package mode

import "testing"

func TestDetectHonorsEmbedOverride(t *testing.T) {
	t.Setenv(EnvVar, "embed")
	if got := detect(); got != Production {
		t.Errorf("expected production, got %v", got)
	}
}

func TestDetectHonorsProxyOverride(t *testing.T) {
	t.Setenv(EnvVar, "proxy")
	if got := detect(); got != Development {
		t.Errorf("expected development, got %v", got)
	}
}

func TestDetectIgnoresUnknownValues(t *testing.T) {
	for _, v := range []string{"", "dev", "prod", "EMBED", "Proxy"} {
		t.Setenv(EnvVar, v)
		if got := detect(); got != defaultMode {
			t.Errorf("value %q: expected build default %v, got %v", v, defaultMode, got)
		}
	}
}

func TestModeString(t *testing.T) {
	if Production.String() != "production" {
		t.Errorf("unexpected string %q", Production.String())
	}
	if Development.String() != "development" {
		t.Errorf("unexpected string %q", Development.String())
	}
}
