package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
)

// Memory implements every store interface behind one mutex. Used by tests
// and the dev server; not meant for real deployments.
type Memory struct {
	mu       sync.Mutex
	vaults   map[string]Vault
	secrets  map[string]map[string]secret.Envelope // vaultID -> name -> envelope
	sessions map[string]session.Session
	entries  []audit.Entry
}

func NewMemory() *Memory {
	return &Memory{
		vaults:   map[string]Vault{},
		secrets:  map[string]map[string]secret.Envelope{},
		sessions: map[string]session.Session{},
	}
}

func (m *Memory) CreateVault(_ context.Context, v Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaults[v.ID] = v
	return nil
}

func (m *Memory) GetVault(_ context.Context, id string) (Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vaults[id]
	if !ok {
		return Vault{}, ErrNotFound
	}
	return v, nil
}

func (m *Memory) ListVaults(_ context.Context, accountID string) ([]Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Vault
	for _, v := range m.vaults {
		if v.AccountID == accountID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteVault(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vaults[id]; !ok {
		return ErrNotFound
	}
	delete(m.vaults, id)
	delete(m.secrets, id)
	return nil
}

func (m *Memory) CountVaults(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.vaults {
		if v.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpsertSecret(_ context.Context, vaultID string, env secret.Envelope) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vaults[vaultID]; !ok {
		return false, ErrNotFound
	}
	byName := m.secrets[vaultID]
	if byName == nil {
		byName = map[string]secret.Envelope{}
		m.secrets[vaultID] = byName
	}
	prev, exists := byName[env.Name]
	if exists {
		env.CreatedAt = prev.CreatedAt
		env.LastAccessedAt = prev.LastAccessedAt
	}
	byName[env.Name] = env
	return !exists, nil
}

func (m *Memory) GetSecret(_ context.Context, vaultID, name string) (secret.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.secrets[vaultID][name]
	if !ok {
		return secret.Envelope{}, ErrNotFound
	}
	return env, nil
}

func (m *Memory) ListSecrets(_ context.Context, vaultID string, names []string) ([]secret.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := m.secrets[vaultID]
	var out []secret.Envelope
	if names == nil {
		for _, env := range byName {
			out = append(out, env)
		}
	} else {
		for _, n := range names {
			if env, ok := byName[n]; ok {
				out = append(out, env)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SecretNames(_ context.Context, vaultID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for n := range m.secrets[vaultID] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) DeleteSecret(_ context.Context, vaultID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[vaultID][name]; !ok {
		return ErrNotFound
	}
	delete(m.secrets[vaultID], name)
	return nil
}

func (m *Memory) CountSecrets(_ context.Context, vaultID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.secrets[vaultID]), nil
}

func (m *Memory) TouchSecrets(_ context.Context, vaultID string, names []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		if env, ok := m.secrets[vaultID][n]; ok {
			env.LastAccessedAt = at
			m.secrets[vaultID][n] = env
		}
	}
	return nil
}

func (m *Memory) Insert(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) FindByTokenHash(_ context.Context, hash string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenHash == hash {
			return s, nil
		}
	}
	return session.Session{}, ErrNotFound
}

func (m *Memory) List(_ context.Context, accountID string) ([]session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []session.Session
	for _, s := range m.sessions {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkRevoked(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &at
		m.sessions[id] = s
	}
	return nil
}

func (m *Memory) RevokeByVault(_ context.Context, vaultID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.VaultID == vaultID && s.RevokedAt == nil {
			s.RevokedAt = &at
			m.sessions[id] = s
		}
	}
	return nil
}

func (m *Memory) CountCreatedSince(_ context.Context, accountID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.AccountID == accountID && !s.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Append(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) ListSince(_ context.Context, accountID string, since time.Time) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for _, e := range m.entries {
		if e.AccountID == accountID && e.CreatedAt.After(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
