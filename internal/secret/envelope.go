package secret

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidEnvelope = errors.New("secret: envelope requires name, ciphertext, nonce and salt")

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName canonicalizes a secret name: trims, uppercases, and replaces
// runs of whitespace with a single underscore. Idempotent. Applied at create
// and update only; retrieval echoes stored names as-is.
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = whitespaceRun.ReplaceAllString(name, "_")
	return strings.ToUpper(name)
}

// Envelope binds one secret's name to its ciphertext and the parameters
// needed to decrypt it. It is inert data: nothing here can decrypt, and no
// other package inspects or transforms the ciphertext bytes.
type Envelope struct {
	Name           string
	Ciphertext     []byte
	Nonce          []byte
	Salt           []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessedAt time.Time
}

// NewEnvelope validates and normalizes a client-submitted envelope. All four
// fields are required.
func NewEnvelope(rawName string, ciphertext, nonce, salt []byte, now time.Time) (*Envelope, error) {
	name := NormalizeName(rawName)
	if name == "" || len(ciphertext) == 0 || len(nonce) == 0 || len(salt) == 0 {
		return nil, ErrInvalidEnvelope
	}
	return &Envelope{
		Name:       name,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Salt:       salt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
