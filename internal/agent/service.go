// Package agent implements the retrieval protocol an external agent uses to
// redeem a bearer token for its still-encrypted secrets.
package agent

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
	"github.com/skygkruger/vaultagent-sub000/internal/storage"
)

// The three 401-class outcomes are distinct so callers can tell a dead token
// from a timed-out one.
var (
	ErrUnauthenticated = errors.New("agent: invalid or unknown token")
	ErrSessionExpired  = errors.New("agent: session expired")
	ErrSessionRevoked  = errors.New("agent: session revoked")
)

// Grant is a successful redemption: filtered envelopes, ciphertext unchanged,
// plus session metadata.
type Grant struct {
	Envelopes    []secret.Envelope
	SessionID    string
	AgentLabel   string
	ExpiresAt    time.Time
	AllowedNames []string
}

// Description reports on a session without authorizing anything. Unlike
// Retrieve it succeeds for expired and revoked sessions, so a client can show
// why its token stopped working.
type Description struct {
	AgentLabel   string
	ExpiresAt    time.Time
	AllowedNames []string
	Status       session.Status
}

type Service struct {
	vaults   storage.VaultStore
	sessions storage.SessionStore
	recorder *audit.Recorder
	logger   *log.Logger
	now      func() time.Time
}

func NewService(vaults storage.VaultStore, sessions storage.SessionStore, recorder *audit.Recorder, logger *log.Logger) *Service {
	return &Service{
		vaults:   vaults,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// resolve hashes the presented token and looks the session up by digest. It
// does not check expiry or revocation; resolve and authorize are different
// concerns.
func (s *Service) resolve(ctx context.Context, rawToken string) (session.Session, error) {
	if !crypto.ValidTokenFormat(rawToken) {
		return session.Session{}, ErrUnauthenticated
	}
	sess, err := s.sessions.FindByTokenHash(ctx, crypto.HashToken(crypto.Token(rawToken)))
	if errors.Is(err, storage.ErrNotFound) {
		return session.Session{}, ErrUnauthenticated
	}
	if err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// Retrieve redeems a bearer token: resolve, gate on status, intersect the
// grant with the vault's current names, audit each returned envelope, and
// hand the envelopes back untouched. Safe to call repeatedly; each call
// re-runs the filter and extends the audit trail.
func (s *Service) Retrieve(ctx context.Context, rawToken, sourceAddr string) (*Grant, error) {
	sess, err := s.resolve(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch sess.Status(now) {
	case session.StatusRevoked:
		return nil, ErrSessionRevoked
	case session.StatusExpired:
		return nil, ErrSessionExpired
	}

	currentNames, err := s.vaults.SecretNames(ctx, sess.VaultID)
	if err != nil {
		return nil, err
	}
	names := sess.EffectiveSecretNames(currentNames)

	envs, err := s.vaults.ListSecrets(ctx, sess.VaultID, names)
	if err != nil {
		return nil, err
	}

	for _, env := range envs {
		s.recorder.Record(audit.Entry{
			AccountID:     sess.AccountID,
			Action:        audit.ActionSecretAccess,
			Target:        env.Name,
			AgentLabel:    sess.AgentLabel,
			SessionID:     sess.ID,
			SourceAddress: sourceAddr,
		})
	}

	if len(envs) > 0 {
		touched := make([]string, len(envs))
		for i, env := range envs {
			touched[i] = env.Name
		}
		// Timestamp bookkeeping follows the same policy as audit: it never
		// blocks delivery of the grant.
		if err := s.vaults.TouchSecrets(ctx, sess.VaultID, touched, now); err != nil {
			s.logger.Printf("last-access update failed session=%s: %v", sess.ID, err)
		}
	}

	return &Grant{
		Envelopes:    envs,
		SessionID:    sess.ID,
		AgentLabel:   sess.AgentLabel,
		ExpiresAt:    sess.ExpiresAt,
		AllowedNames: names,
	}, nil
}

// Describe resolves a token for status reporting. No secrets are read and no
// audit entry is appended.
func (s *Service) Describe(ctx context.Context, rawToken string) (*Description, error) {
	sess, err := s.resolve(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	return &Description{
		AgentLabel:   sess.AgentLabel,
		ExpiresAt:    sess.ExpiresAt,
		AllowedNames: sess.AllowedSecretNames,
		Status:       sess.Status(s.now()),
	}, nil
}
