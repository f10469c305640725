package secret

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"openai api key", "OPENAI_API_KEY"},
		{"OPENAI_API_KEY", "OPENAI_API_KEY"},
		{"  db   password ", "DB_PASSWORD"},
		{"a\tb", "A_B"},
		{"a\n b", "A_B"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	for _, in := range []string{"openai api key", "Stripe  Secret", "X", "a_b c"} {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Fatalf("NormalizeName not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	now := time.Now()
	env, err := NewEnvelope("openai api key", []byte{1}, []byte{2}, []byte{3}, now)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.Name != "OPENAI_API_KEY" {
		t.Fatalf("name %q, want OPENAI_API_KEY", env.Name)
	}
	if !env.CreatedAt.Equal(now) || !env.UpdatedAt.Equal(now) {
		t.Fatal("timestamps not set")
	}
}

func TestNewEnvelopeRejectsMissingFields(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name            string
		ct, nonce, salt []byte
	}{
		{"", []byte{1}, []byte{2}, []byte{3}},
		{"  ", []byte{1}, []byte{2}, []byte{3}},
		{"NAME", nil, []byte{2}, []byte{3}},
		{"NAME", []byte{1}, nil, []byte{3}},
		{"NAME", []byte{1}, []byte{2}, nil},
	}
	for i, c := range cases {
		if _, err := NewEnvelope(c.name, c.ct, c.nonce, c.salt, now); !errors.Is(err, ErrInvalidEnvelope) {
			t.Fatalf("case %d: expected ErrInvalidEnvelope, got %v", i, err)
		}
	}
}
