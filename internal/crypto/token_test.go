package crypto

import (
	"strings"
	"testing"
)

func TestGenerateTokenFormat(t *testing.T) {
	tok, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	s := string(tok)
	if !strings.HasPrefix(s, TokenPrefix) {
		t.Fatalf("token %q missing prefix %q", s, TokenPrefix)
	}
	if len(s) != len(TokenPrefix)+tokenEncLen {
		t.Fatalf("token length %d, want %d", len(s), len(TokenPrefix)+tokenEncLen)
	}
	if !ValidTokenFormat(s) {
		t.Fatalf("generated token %q fails its own format check", s)
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := map[Token]struct{}{}
	for i := 0; i < 1000; i++ {
		tok, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatal("duplicate token")
		}
		seen[tok] = struct{}{}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	tok, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if HashToken(tok) != HashToken(tok) {
		t.Fatal("hash must be deterministic")
	}
	other, _ := GenerateToken()
	if HashToken(tok) == HashToken(other) {
		t.Fatal("distinct tokens collided")
	}
	if len(HashToken(tok)) != 64 {
		t.Fatalf("digest length %d, want 64 hex chars", len(HashToken(tok)))
	}
}

func TestValidTokenFormat(t *testing.T) {
	tok, _ := GenerateToken()
	cases := []struct {
		in string
		ok bool
	}{
		{string(tok), true},
		{"", false},
		{"va_sess_", false},
		{"bearer " + string(tok), false},
		{strings.TrimPrefix(string(tok), "va_"), false},
		{string(tok) + "x", false},
		{string(tok[:len(tok)-1]) + "!", false},
	}
	for _, c := range cases {
		if got := ValidTokenFormat(c.in); got != c.ok {
			t.Fatalf("ValidTokenFormat(%q) = %v, want %v", c.in, got, c.ok)
		}
	}
}
