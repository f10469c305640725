package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/auth"
	"github.com/skygkruger/vaultagent-sub000/internal/tier"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(auth.DefaultArgon, req.Password)
	if err != nil {
		s.logger.Printf("hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	acct := &auth.Account{
		ID:        uuid.NewString(),
		Email:     email,
		PassHash:  hash,
		Tier:      string(tier.Free),
		CreatedAt: s.now(),
	}
	if err := s.accounts.Add(r.Context(), acct); err != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{"account_id": acct.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if res := s.limiter.Check("login:"+getClientIP(r), s.cfg.LoginAttemptsPerMinute, time.Minute); res.Limited {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	acct, err := s.accounts.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(req.Password, acct.PassHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, exp, err := s.signer.IssueToken(acct.ID)
	if err != nil {
		s.logger.Printf("issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.recorder.Record(audit.Entry{
		AccountID:     acct.ID,
		Action:        audit.ActionLogin,
		Target:        acct.Email,
		SourceAddress: getClientIP(r),
	})
	writeJSON(w, map[string]any{"token": tok, "expires_at": exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, err := auth.MustClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}
	// JWTs are stateless; logout exists for the audit trail.
	s.recorder.Record(audit.Entry{
		AccountID:     claims.AccountID,
		Action:        audit.ActionLogout,
		SourceAddress: getClientIP(r),
	})
	w.WriteHeader(http.StatusNoContent)
}
