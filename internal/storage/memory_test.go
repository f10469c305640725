package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
)

func testEnvelope(t *testing.T, name string) secret.Envelope {
	t.Helper()
	env, err := secret.NewEnvelope(name, []byte{1, 2}, []byte{3, 4}, []byte{5, 6}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return *env
}

func TestMemoryVaultCascade(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := Vault{ID: "v1", AccountID: "a1", Name: "prod", CreatedAt: time.Now()}
	if err := m.CreateVault(ctx, v); err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if _, err := m.UpsertSecret(ctx, "v1", testEnvelope(t, "API_KEY")); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	if err := m.DeleteVault(ctx, "v1"); err != nil {
		t.Fatalf("DeleteVault: %v", err)
	}
	if _, err := m.GetSecret(ctx, "v1", "API_KEY"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("secret survived vault deletion: %v", err)
	}
}

func TestMemoryUpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.CreateVault(ctx, Vault{ID: "v1", AccountID: "a1"})

	first := testEnvelope(t, "API_KEY")
	created, err := m.UpsertSecret(ctx, "v1", first)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	second := testEnvelope(t, "API_KEY")
	second.CreatedAt = second.CreatedAt.Add(time.Hour)
	created, err = m.UpsertSecret(ctx, "v1", second)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}

	got, err := m.GetSecret(ctx, "v1", "API_KEY")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("update must not move created_at")
	}
}

func TestMemorySessionRevokeFirstSetWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := session.Session{ID: "s1", AccountID: "a1", VaultID: "v1", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	_ = m.Insert(ctx, s)

	first := time.Now()
	if err := m.MarkRevoked(ctx, "s1", first); err != nil {
		t.Fatalf("MarkRevoked: %v", err)
	}
	if err := m.MarkRevoked(ctx, "s1", first.Add(time.Minute)); err != nil {
		t.Fatalf("second MarkRevoked: %v", err)
	}
	got, _ := m.Get(ctx, "s1")
	if got.RevokedAt == nil || !got.RevokedAt.Equal(first) {
		t.Fatalf("RevokedAt = %v, want first-set %v", got.RevokedAt, first)
	}
}

func TestMemoryRevokeByVault(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Insert(ctx, session.Session{ID: "s1", VaultID: "v1", ExpiresAt: time.Now().Add(time.Hour)})
	_ = m.Insert(ctx, session.Session{ID: "s2", VaultID: "v2", ExpiresAt: time.Now().Add(time.Hour)})

	if err := m.RevokeByVault(ctx, "v1", time.Now()); err != nil {
		t.Fatalf("RevokeByVault: %v", err)
	}
	s1, _ := m.Get(ctx, "s1")
	s2, _ := m.Get(ctx, "s2")
	if s1.RevokedAt == nil {
		t.Fatal("v1 session should be revoked")
	}
	if s2.RevokedAt != nil {
		t.Fatal("v2 session should be untouched")
	}
}

func TestMemoryCountCreatedSince(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	_ = m.Insert(ctx, session.Session{ID: "old", AccountID: "a1", CreatedAt: now.Add(-48 * time.Hour)})
	_ = m.Insert(ctx, session.Session{ID: "new", AccountID: "a1", CreatedAt: now})
	_ = m.Insert(ctx, session.Session{ID: "other", AccountID: "a2", CreatedAt: now})

	n, err := m.CountCreatedSince(ctx, "a1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountCreatedSince: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestMemoryListSecretsFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.CreateVault(ctx, Vault{ID: "v1"})
	for _, n := range []string{"A", "B", "C"} {
		if _, err := m.UpsertSecret(ctx, "v1", testEnvelope(t, n)); err != nil {
			t.Fatalf("UpsertSecret %s: %v", n, err)
		}
	}
	got, err := m.ListSecrets(ctx, "v1", []string{"A", "C"})
	if err != nil {
		t.Fatalf("ListSecrets: %v", err)
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "C" {
		t.Fatalf("ListSecrets = %v", got)
	}
	all, err := m.ListSecrets(ctx, "v1", nil)
	if err != nil {
		t.Fatalf("ListSecrets all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}
}
