package mode

import (
	"os"
	"sync"
)

// Mode selects the process-wide serving strategy.
type Mode int

const (
	// Production serves embedded assets.
	Production Mode = iota
	// Development proxies to frontend dev servers.
	Development
)

func (m Mode) String() string {
	if m == Development {
		return "development"
	}
	return "production"
}

// EnvVar is the mode override environment variable. It recognizes exactly
// two values: "embed" forces Production, "proxy" forces Development.
// Anything else falls through to the build-type default.
const EnvVar = "SITEFRONT_MODE"

var resolve = sync.OnceValue(detect)

// Resolve returns the serving mode for this process. It is evaluated once
// and cached: mode does not change during a run.
func Resolve() Mode {
	return resolve()
}

func detect() Mode {
	switch os.Getenv(EnvVar) {
	case "embed":
		return Production
	case "proxy":
		return Development
	}
	return defaultMode
}
