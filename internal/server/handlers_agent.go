package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/agent"
	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
)

// Wire shapes for the agent retrieval contract. The three cryptographic
// fields travel base64; the stored bytes themselves are never transformed.
type wireSecret struct {
	Name           string `json:"name"`
	EncryptedValue string `json:"encrypted_value"`
	IV             string `json:"iv"`
	Salt           string `json:"salt"`
}

type wireSessionMeta struct {
	AgentName      string    `json:"agent_name"`
	ExpiresAt      time.Time `json:"expires_at"`
	AllowedSecrets []string  `json:"allowed_secrets"`
}

type agentSecretsResponse struct {
	Secrets []wireSecret    `json:"secrets"`
	Session wireSessionMeta `json:"session"`
}

func toWireSecret(env secret.Envelope) wireSecret {
	return wireSecret{
		Name:           env.Name,
		EncryptedValue: base64.StdEncoding.EncodeToString(env.Ciphertext),
		IV:             base64.StdEncoding.EncodeToString(env.Nonce),
		Salt:           base64.StdEncoding.EncodeToString(env.Salt),
	}
}

// rateKey buckets the limiter by token digest so the plaintext token never
// sits in the limiter map.
func rateKey(token string) string {
	return "agent:" + crypto.HashToken(crypto.Token(token))
}

func (s *Server) handleAgentSecrets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r)
	if res := s.limiter.Check(rateKey(token), s.cfg.AgentRequestsPerMinute, time.Minute); res.Limited {
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	grant, err := s.agent.Retrieve(r.Context(), token, getClientIP(r))
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	resp := agentSecretsResponse{
		Secrets: make([]wireSecret, 0, len(grant.Envelopes)),
		Session: wireSessionMeta{
			AgentName:      grant.AgentLabel,
			ExpiresAt:      grant.ExpiresAt,
			AllowedSecrets: grant.AllowedNames,
		},
	}
	for _, env := range grant.Envelopes {
		resp.Secrets = append(resp.Secrets, toWireSecret(env))
	}
	writeJSON(w, resp)
}

func (s *Server) handleAgentSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r)
	if res := s.limiter.Check(rateKey(token), s.cfg.AgentRequestsPerMinute, time.Minute); res.Limited {
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	desc, err := s.agent.Describe(r.Context(), token)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"agent_name":      desc.AgentLabel,
		"expires_at":      desc.ExpiresAt,
		"allowed_secrets": desc.AllowedNames,
		"status":          desc.Status,
	})
}

// writeAgentError keeps the three 401 kinds distinguishable by message while
// hiding storage detail behind a generic 500.
func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "invalid or unknown token")
	case errors.Is(err, agent.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "session expired")
	case errors.Is(err, agent.ErrSessionRevoked):
		writeError(w, http.StatusUnauthorized, "session revoked")
	default:
		s.logger.Printf("agent retrieval failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
