// Package storage defines the persistence contract the broker core depends
// on, plus the Mongo implementation and in-memory fakes. The core treats this
// as a generic record store; everything it holds for secrets is ciphertext.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrDuplicateName = errors.New("storage: duplicate name")
)

type Vault struct {
	ID        string
	AccountID string
	Name      string
	CreatedAt time.Time
}

type VaultStore interface {
	CreateVault(ctx context.Context, v Vault) error
	GetVault(ctx context.Context, id string) (Vault, error)
	ListVaults(ctx context.Context, accountID string) ([]Vault, error)
	// DeleteVault removes the vault and all its secrets.
	DeleteVault(ctx context.Context, id string) error
	CountVaults(ctx context.Context, accountID string) (int, error)

	// UpsertSecret stores an envelope bit-exact, replacing any existing
	// envelope of the same name. Reports whether a new secret was created.
	UpsertSecret(ctx context.Context, vaultID string, env secret.Envelope) (created bool, err error)
	GetSecret(ctx context.Context, vaultID, name string) (secret.Envelope, error)
	// ListSecrets returns envelopes for the given names; nil means all.
	ListSecrets(ctx context.Context, vaultID string, names []string) ([]secret.Envelope, error)
	SecretNames(ctx context.Context, vaultID string) ([]string, error)
	DeleteSecret(ctx context.Context, vaultID, name string) error
	CountSecrets(ctx context.Context, vaultID string) (int, error)
	// TouchSecrets advances last_accessed_at on the named envelopes.
	TouchSecrets(ctx context.Context, vaultID string, names []string, at time.Time) error
}

type SessionStore interface {
	Insert(ctx context.Context, s session.Session) error
	Get(ctx context.Context, id string) (session.Session, error)
	FindByTokenHash(ctx context.Context, hash string) (session.Session, error)
	List(ctx context.Context, accountID string) ([]session.Session, error)
	// MarkRevoked sets revoked_at only if currently unset (first set wins).
	MarkRevoked(ctx context.Context, id string, at time.Time) error
	// RevokeByVault marks every unrevoked session scoped to the vault.
	// Sessions are never deleted, so a vault cascade revokes instead.
	RevokeByVault(ctx context.Context, vaultID string, at time.Time) error
	CountCreatedSince(ctx context.Context, accountID string, since time.Time) (int, error)
}

// AuditStore is the persisted side of the audit trail.
type AuditStore = audit.Store
