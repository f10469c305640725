package bridge

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

// ReadPassword returns the master password from VAULTAGENT_PASSWORD, or
// prompts on the terminal when the variable is unset. Prompt output goes to
// stderr so `vaultagent env` remains safe to eval. The returned bytes are
// mlocked; the caller must crypto.Zero them.
func ReadPassword() ([]byte, error) {
	if v, ok := os.LookupEnv(PasswordEnvVar); ok {
		if v == "" {
			return nil, errors.New(PasswordEnvVar + " is set but empty")
		}
		pw := []byte(v)
		_ = crypto.LockMemory(pw)
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("no terminal available: set " + PasswordEnvVar)
	}
	fmt.Fprint(os.Stderr, "Master password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return nil, errors.New("empty password")
	}
	_ = crypto.LockMemory(pw)
	return pw, nil
}
