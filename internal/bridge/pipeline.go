package bridge

import (
	"errors"
	"fmt"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

// Plain is a named decrypted value. Callers must Wipe it when done.
type Plain struct {
	Name  string
	Value []byte
}

func (p *Plain) Wipe() { crypto.Zero(p.Value) }

// DecryptAll derives a key per secret (each carries its own salt) and
// decrypts in order. The first failure aborts the whole batch: a wrong
// password or tampered ciphertext must never yield a partial environment.
// Everything decrypted before the failure is wiped on the way out.
func DecryptAll(secrets []RemoteSecret, password string) ([]Plain, error) {
	out := make([]Plain, 0, len(secrets))
	for _, s := range secrets {
		key := crypto.DeriveKey(password, s.Salt)
		value, err := crypto.Decrypt(s.Ciphertext, s.Nonce, key)
		crypto.Zero(key)
		if err != nil {
			WipeAll(out)
			if errors.Is(err, crypto.ErrAuthenticationFailure) {
				return nil, fmt.Errorf("cannot decrypt secret %s: wrong password or corrupted data", s.Name)
			}
			return nil, fmt.Errorf("cannot decrypt secret %s: %w", s.Name, err)
		}
		_ = crypto.LockMemory(value)
		out = append(out, Plain{Name: s.Name, Value: value})
	}
	return out, nil
}

// WipeAll zeroes every decrypted value.
func WipeAll(plains []Plain) {
	for i := range plains {
		plains[i].Wipe()
	}
}
