package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// NonceSize is the AES-GCM nonce length stored alongside each ciphertext.
const NonceSize = 12

var (
	ErrAuthenticationFailure = errors.New("crypto: message authentication failed")
	ErrInvalidKeySize        = errors.New("crypto: key must be 32 bytes")
	ErrInvalidNonceSize      = errors.New("crypto: nonce must be 12 bytes")
)

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce. The
// nonce is returned for storage next to the ciphertext; a (key, nonce) pair
// is never reused.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt reverses Encrypt. A wrong key, corrupted ciphertext and deliberate
// tampering are indistinguishable; all of them surface as
// ErrAuthenticationFailure. There is no partial decrypt.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return pt, nil
}
