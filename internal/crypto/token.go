package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	TokenPrefix = "va_sess_"

	tokenRandLen = 34 // 272 bits of entropy
	tokenEncLen  = 46 // base64url length of tokenRandLen bytes
)

// Token is a plaintext bearer token. It deliberately has no marshal methods
// and no storage mapping: the creation path returns it exactly once, and only
// the digest from HashToken is ever persisted.
type Token string

// GenerateToken produces a fresh bearer token from the OS random source.
func GenerateToken() (Token, error) {
	b := make([]byte, tokenRandLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Token(TokenPrefix + base64.RawURLEncoding.EncodeToString(b)), nil
}

// HashToken maps a token to its storable digest. Plain SHA-256 without salt
// or stretching: the token carries 272 random bits, so reversing the digest
// by lookup is infeasible regardless of hash speed. Slow hashes are reserved
// for low-entropy account passwords.
func HashToken(t Token) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether s is shaped like a bearer token. Malformed
// tokens are rejected before any lookup or network round trip.
func ValidTokenFormat(s string) bool {
	if !strings.HasPrefix(s, TokenPrefix) {
		return false
	}
	rest := s[len(TokenPrefix):]
	if len(rest) != tokenEncLen {
		return false
	}
	for _, c := range rest {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
