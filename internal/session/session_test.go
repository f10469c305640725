package session

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

var vaultNames = []string{"A", "B", "C"}

func newTestSession(t *testing.T, allowed []string, ttl time.Duration) (*Session, crypto.Token) {
	t.Helper()
	s, tok, err := New("vault-1", "acct-1", allowed, "ci-agent", ttl, vaultNames, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, tok
}

func TestNewSnapshotsVaultWhenUnscoped(t *testing.T) {
	s, _ := newTestSession(t, nil, time.Hour)
	if !reflect.DeepEqual(s.AllowedSecretNames, []string{"A", "B", "C"}) {
		t.Fatalf("allowed = %v, want snapshot of vault", s.AllowedSecretNames)
	}
}

func TestNewNormalizesAndDedupesAllowed(t *testing.T) {
	s, _, err := New("vault-1", "acct-1", []string{"a", " A ", "b"}, "agent", time.Hour, vaultNames, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !reflect.DeepEqual(s.AllowedSecretNames, []string{"A", "B"}) {
		t.Fatalf("allowed = %v, want [A B]", s.AllowedSecretNames)
	}
}

func TestNewRejectsUnknownName(t *testing.T) {
	_, _, err := New("vault-1", "acct-1", []string{"A", "NOPE"}, "agent", time.Hour, vaultNames, time.Now())
	if !errors.Is(err, ErrUnknownSecretName) {
		t.Fatalf("expected ErrUnknownSecretName, got %v", err)
	}
}

func TestNewRejectsNonPositiveTTL(t *testing.T) {
	if _, _, err := New("v", "a", nil, "agent", 0, vaultNames, time.Now()); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestTokenReturnedOnceAndOnlyHashStored(t *testing.T) {
	s, tok := newTestSession(t, nil, time.Hour)
	if !crypto.ValidTokenFormat(string(tok)) {
		t.Fatalf("token %q has invalid format", tok)
	}
	if s.TokenHash != crypto.HashToken(tok) {
		t.Fatal("stored hash does not match token")
	}
	if s.TokenHash == string(tok) {
		t.Fatal("plaintext token must never be stored")
	}
}

func TestStatusPrecedence(t *testing.T) {
	now := time.Now()

	s, _ := newTestSession(t, nil, time.Hour)
	if got := s.Status(now); got != StatusActive {
		t.Fatalf("fresh session status %q, want active", got)
	}

	// Expired by clock.
	expired := *s
	expired.ExpiresAt = now.Add(-time.Minute)
	if got := expired.Status(now); got != StatusExpired {
		t.Fatalf("status %q, want expired", got)
	}

	// Revoked wins even with future expiry.
	revoked := *s
	revoked.Revoke(now)
	if got := revoked.Status(now); got != StatusRevoked {
		t.Fatalf("status %q, want revoked", got)
	}

	// Revoked wins over expired too.
	both := *s
	both.ExpiresAt = now.Add(-time.Minute)
	both.Revoke(now)
	if got := both.Status(now); got != StatusRevoked {
		t.Fatalf("status %q, want revoked over expired", got)
	}
}

func TestExpiryBoundaryIsInclusive(t *testing.T) {
	s, _ := newTestSession(t, nil, time.Hour)
	if got := s.Status(s.ExpiresAt); got != StatusExpired {
		t.Fatalf("status at exact expiry %q, want expired", got)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	s, _ := newTestSession(t, nil, time.Hour)
	first := time.Now()
	s.Revoke(first)
	s.Revoke(first.Add(time.Minute))
	if !s.RevokedAt.Equal(first) {
		t.Fatalf("RevokedAt moved to %v, want first-set %v", s.RevokedAt, first)
	}
}

func TestEffectiveSecretNamesShrinksWithVault(t *testing.T) {
	s, _ := newTestSession(t, []string{"A", "B"}, time.Hour)

	// C in the vault but outside the grant.
	if got := s.EffectiveSecretNames([]string{"A", "B", "C"}); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("effective = %v, want [A B]", got)
	}

	// Deleting B shrinks the grant.
	if got := s.EffectiveSecretNames([]string{"A", "C"}); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("effective = %v, want [A]", got)
	}

	// Vault additions never widen a fixed scope.
	if got := s.EffectiveSecretNames([]string{"A", "B", "C", "D"}); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("effective = %v, want [A B]", got)
	}
}

func TestUnscopedSessionDoesNotGainLaterSecrets(t *testing.T) {
	s, _, err := New("vault-1", "acct-1", nil, "agent", time.Hour, []string{"A", "B"}, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// C added to the vault after creation.
	if got := s.EffectiveSecretNames([]string{"A", "B", "C"}); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("effective = %v, want creation-time snapshot [A B]", got)
	}
}
