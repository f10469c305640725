package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
	"github.com/skygkruger/vaultagent-sub000/internal/storage"
	"github.com/skygkruger/vaultagent-sub000/internal/tier"
)

type createSessionRequest struct {
	VaultID        string   `json:"vault_id"`
	AgentName      string   `json:"agent_name"`
	AllowedSecrets []string `json:"allowed_secrets"`
	TTLSeconds     int      `json:"ttl_seconds"`
}

type sessionView struct {
	SessionID      string     `json:"session_id"`
	VaultID        string     `json:"vault_id"`
	AgentName      string     `json:"agent_name"`
	AllowedSecrets []string   `json:"allowed_secrets"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	Status         string     `json:"status"`
}

func toSessionView(sess session.Session, now time.Time) sessionView {
	return sessionView{
		SessionID:      sess.ID,
		VaultID:        sess.VaultID,
		AgentName:      sess.AgentLabel,
		AllowedSecrets: sess.AllowedSecretNames,
		CreatedAt:      sess.CreatedAt,
		ExpiresAt:      sess.ExpiresAt,
		RevokedAt:      sess.RevokedAt,
		Status:         string(sess.Status(now)),
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	claims, accTier, ok := s.accountTier(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sessions, err := s.sessions.List(r.Context(), claims.AccountID)
		if err != nil {
			s.logger.Printf("list sessions: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		now := s.now()
		views := make([]sessionView, 0, len(sessions))
		for _, sess := range sessions {
			views = append(views, toSessionView(sess, now))
		}
		writeJSON(w, map[string]any{"sessions": views})

	case http.MethodPost:
		s.createSession(w, r, claims.AccountID, accTier)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request, accountID string, accTier tier.Tier) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.VaultID == "" {
		writeError(w, http.StatusBadRequest, "vault_id required")
		return
	}
	if strings.TrimSpace(req.AgentName) == "" {
		writeError(w, http.StatusBadRequest, "agent_name required")
		return
	}

	if res := s.limiter.Check("session-create:"+accountID, s.cfg.SessionCreatesPerHour, time.Hour); res.Limited {
		writeError(w, http.StatusTooManyRequests, "too many session creations, slow down")
		return
	}

	vault, err := s.vaults.GetVault(r.Context(), req.VaultID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && vault.AccountID != accountID) {
		writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	if err != nil {
		s.logger.Printf("get vault: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	limits := tier.LimitsFor(accTier)
	midnight := s.now().UTC().Truncate(24 * time.Hour)
	created, err := s.sessions.CountCreatedSince(r.Context(), accountID, midnight)
	if err != nil {
		s.logger.Printf("count sessions: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if created >= limits.SessionsPerDay {
		writeError(w, http.StatusForbidden,
			fmt.Sprintf("session limit reached: %d per day on %s tier", limits.SessionsPerDay, accTier))
		return
	}

	ttl := s.cfg.DefaultSessionTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if ttl > s.cfg.MaxSessionTTL {
		ttl = s.cfg.MaxSessionTTL
	}

	names, err := s.vaults.SecretNames(r.Context(), vault.ID)
	if err != nil {
		s.logger.Printf("secret names: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess, token, err := session.New(vault.ID, accountID, req.AllowedSecrets, strings.TrimSpace(req.AgentName), ttl, names, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.sessions.Insert(r.Context(), *sess); err != nil {
		s.logger.Printf("insert session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.recorder.Record(audit.Entry{
		AccountID:     accountID,
		Action:        audit.ActionSessionCreate,
		Target:        vault.Name,
		AgentLabel:    sess.AgentLabel,
		SessionID:     sess.ID,
		SourceAddress: getClientIP(r),
	})

	// The plaintext token appears here and nowhere else; only its hash is
	// stored.
	writeJSONStatus(w, http.StatusCreated, map[string]any{
		"token":           string(token),
		"session_id":      sess.ID,
		"expires_at":      sess.ExpiresAt,
		"allowed_secrets": sess.AllowedSecretNames,
	})
}

// handleSessionSubtree routes /api/sessions/{id} and
// /api/sessions/{id}/revoke.
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	claims, _, ok := s.accountTier(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	sessionID := parts[0]
	if sessionID == "" {
		http.NotFound(w, r)
		return
	}

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && sess.AccountID != claims.AccountID) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Printf("get session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, toSessionView(sess, s.now()))

	case parts[1] == "revoke":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.revokeSession(w, r, claims.AccountID, sess)

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) revokeSession(w http.ResponseWriter, r *http.Request, accountID string, sess session.Session) {
	// Idempotent: revoking an already-revoked or expired session succeeds
	// without moving the original revocation timestamp.
	if err := s.sessions.MarkRevoked(r.Context(), sess.ID, s.now()); err != nil {
		s.logger.Printf("revoke session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sess.RevokedAt == nil {
		s.recorder.Record(audit.Entry{
			AccountID:     accountID,
			Action:        audit.ActionSessionRevoke,
			AgentLabel:    sess.AgentLabel,
			SessionID:     sess.ID,
			SourceAddress: getClientIP(r),
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
