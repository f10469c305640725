package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randBytes(t, KeySize)
	pt := randBytes(t, 4096)
	ct, nonce, err := Encrypt(pt, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	out, err := Decrypt(ct, nonce, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, out) {
		t.Fatal("plaintext mismatch")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt([]byte("secret-data"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	other := randBytes(t, KeySize)
	if _, err := Decrypt(ct, nonce, other); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	key := DeriveKey("correct-horse-battery-staple!1", salt)
	ct, nonce, err := Encrypt([]byte("sk-live-12345"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	wrong := DeriveKey("incorrect-horse-battery-staple!1", salt)
	if _, err := Decrypt(ct, nonce, wrong); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestDecryptTamper(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt([]byte("hello"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	mut := append([]byte(nil), ct...)
	mut[len(mut)-1] ^= 0xFF
	if _, err := Decrypt(mut, nonce, key); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestDecryptTruncated(t *testing.T) {
	key := randBytes(t, KeySize)
	ct, nonce, err := Encrypt([]byte("hello"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(ct[:len(ct)-1], nonce, key); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestEncryptRejectsBadKeySize(t *testing.T) {
	if _, _, err := Encrypt([]byte("x"), make([]byte, 16)); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestNonceNeverRepeats(t *testing.T) {
	key := randBytes(t, KeySize)
	pt := []byte("p")
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, nonce, err := Encrypt(pt, key)
		if err != nil {
			t.Fatalf("encrypt %d: %v", i, err)
		}
		if len(nonce) != NonceSize {
			t.Fatalf("nonce length %d", len(nonce))
		}
		k := string(nonce)
		if _, dup := seen[k]; dup {
			t.Fatalf("nonce repeated after %d encryptions", i)
		}
		seen[k] = struct{}{}
	}
}
