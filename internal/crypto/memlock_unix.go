//go:build linux || darwin

package crypto

import "golang.org/x/sys/unix"

// LockMemory pins b so the kernel cannot swap it to disk. Best-effort:
// callers ignore failures on systems with low RLIMIT_MEMLOCK.
func LockMemory(b []byte) error { return unix.Mlock(b) }

func UnlockMemory(b []byte) error { return unix.Munlock(b) }
