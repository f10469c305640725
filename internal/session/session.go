// Package session models a scoped, time-bounded grant redeemable by a bearer
// token. A session is Active from the instant of creation; it leaves that
// state either by the clock (Expired) or by an explicit revoke (Revoked).
// Both end states are terminal.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
)

var (
	ErrInvalidTTL        = errors.New("session: ttl must be positive")
	ErrUnknownSecretName = errors.New("session: allowed name not present in vault")
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Session is immutable after creation except for RevokedAt. Sessions are
// never deleted, only marked revoked, so the audit trail stays resolvable.
type Session struct {
	ID                 string
	VaultID            string
	AccountID          string
	TokenHash          string
	AllowedSecretNames []string
	AgentLabel         string
	CreatedAt          time.Time
	ExpiresAt          time.Time
	RevokedAt          *time.Time
}

// New creates a session scoped to vaultNames. A nil or empty allowed list
// snapshots every name currently in the vault; names added to the vault later
// are not retroactively included. The plaintext token is returned exactly
// once and is unrecoverable afterwards: only its hash is kept on the
// session.
func New(vaultID, accountID string, allowed []string, agentLabel string, ttl time.Duration, vaultNames []string, now time.Time) (*Session, crypto.Token, error) {
	if ttl <= 0 {
		return nil, "", ErrInvalidTTL
	}

	inVault := make(map[string]struct{}, len(vaultNames))
	for _, n := range vaultNames {
		inVault[n] = struct{}{}
	}

	var scoped []string
	if len(allowed) == 0 {
		scoped = append(scoped, vaultNames...)
	} else {
		seen := make(map[string]struct{}, len(allowed))
		for _, raw := range allowed {
			name := secret.NormalizeName(raw)
			if name == "" {
				continue
			}
			if _, ok := inVault[name]; !ok {
				return nil, "", ErrUnknownSecretName
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			scoped = append(scoped, name)
		}
	}
	sort.Strings(scoped)

	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	s := &Session{
		ID:                 uuid.NewString(),
		VaultID:            vaultID,
		AccountID:          accountID,
		TokenHash:          crypto.HashToken(token),
		AllowedSecretNames: scoped,
		AgentLabel:         agentLabel,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}
	return s, token, nil
}

// Status derives the session state. Revocation wins over expiry: a revoked
// session reports revoked even when its expiry is still in the future.
func (s *Session) Status(now time.Time) Status {
	if s.RevokedAt != nil {
		return StatusRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// Revoke marks the session permanently inert. Idempotent: the first-set
// timestamp wins and later calls do not move it.
func (s *Session) Revoke(now time.Time) {
	if s.RevokedAt == nil {
		t := now
		s.RevokedAt = &t
	}
}

// EffectiveSecretNames intersects the names granted at creation with the
// names currently in the vault, so deleting a secret silently shrinks what
// the session can retrieve. Recomputed on every call, never cached.
func (s *Session) EffectiveSecretNames(currentVaultNames []string) []string {
	current := make(map[string]struct{}, len(currentVaultNames))
	for _, n := range currentVaultNames {
		current[n] = struct{}{}
	}
	out := make([]string, 0, len(s.AllowedSecretNames))
	for _, n := range s.AllowedSecretNames {
		if _, ok := current[n]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
