//go:build !linux && !darwin

package platform

// DisableCoreDumps is a no-op where RLIMIT_CORE is unavailable.
func DisableCoreDumps() error { return nil }
