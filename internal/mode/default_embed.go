//go:build !dev

package mode

// Release builds serve embedded assets unless overridden.
const defaultMode = Production
