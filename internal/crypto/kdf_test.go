package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := randBytes(t, SaltSize)
	a := DeriveKey("master-password", salt)
	b := DeriveKey("master-password", salt)
	if !bytes.Equal(a, b) {
		t.Fatal("same (password, salt) must derive the same key")
	}
	if len(a) != KeySize {
		t.Fatalf("key length %d, want %d", len(a), KeySize)
	}
}

func TestDeriveKeySaltSeparation(t *testing.T) {
	s1 := randBytes(t, SaltSize)
	s2 := randBytes(t, SaltSize)
	if bytes.Equal(DeriveKey("master-password", s1), DeriveKey("master-password", s2)) {
		t.Fatal("different salts must derive different keys")
	}
}

func TestDeriveKeyPasswordSeparation(t *testing.T) {
	salt := randBytes(t, SaltSize)
	if bytes.Equal(DeriveKey("password-a", salt), DeriveKey("password-b", salt)) {
		t.Fatal("different passwords must derive different keys")
	}
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	if len(a) != SaltSize {
		t.Fatalf("salt length %d, want %d", len(a), SaltSize)
	}
	if bytes.Equal(a, b) {
		t.Fatal("salts must be random")
	}
}
