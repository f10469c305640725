package crypto

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations must match the encrypting client's derivation exactly;
	// a mismatch surfaces as an authentication failure on decrypt.
	KDFIterations = 100_000
	SaltSize      = 16
	KeySize       = 32
)

// DeriveKey stretches a master password into a 256-bit key with
// PBKDF2-SHA256. Deterministic: the same (password, salt) pair always yields
// the same key, and distinct salts yield unlinkable keys.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KDFIterations, KeySize, sha256.New)
}

// NewSalt returns a fresh random KDF salt. Salts are generated once per
// encryption and never reused across secrets.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
