//go:build dev

package mode

// Builds tagged -tags dev proxy to frontend dev servers unless overridden.
const defaultMode = Development
