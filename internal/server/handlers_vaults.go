package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/auth"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/storage"
	"github.com/skygkruger/vaultagent-sub000/internal/tier"
)

func (s *Server) accountTier(r *http.Request) (*auth.Claims, tier.Tier, bool) {
	claims, err := auth.MustClaims(r)
	if err != nil {
		return nil, tier.Free, false
	}
	acct, err := s.accounts.FindByID(r.Context(), claims.AccountID)
	if err != nil {
		return nil, tier.Free, false
	}
	return claims, tier.Parse(acct.Tier), true
}

// ownedVault loads a vault and checks it belongs to the caller. Foreign and
// missing vaults are indistinguishable.
func (s *Server) ownedVault(r *http.Request, claims *auth.Claims, vaultID string) (storage.Vault, error) {
	v, err := s.vaults.GetVault(r.Context(), vaultID)
	if err != nil {
		return storage.Vault{}, err
	}
	if v.AccountID != claims.AccountID {
		return storage.Vault{}, storage.ErrNotFound
	}
	return v, nil
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request) {
	claims, accTier, ok := s.accountTier(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}
	limits := tier.LimitsFor(accTier)

	switch r.Method {
	case http.MethodGet:
		vaults, err := s.vaults.ListVaults(r.Context(), claims.AccountID)
		if err != nil {
			s.logger.Printf("list vaults: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, map[string]any{"vaults": vaults})

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "vault name required")
			return
		}
		n, err := s.vaults.CountVaults(r.Context(), claims.AccountID)
		if err != nil {
			s.logger.Printf("count vaults: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if n >= limits.MaxVaults {
			writeError(w, http.StatusForbidden,
				fmt.Sprintf("vault limit reached: %d on %s tier", limits.MaxVaults, accTier))
			return
		}
		v := storage.Vault{
			ID:        uuid.NewString(),
			AccountID: claims.AccountID,
			Name:      strings.TrimSpace(req.Name),
			CreatedAt: s.now(),
		}
		if err := s.vaults.CreateVault(r.Context(), v); err != nil {
			s.logger.Printf("create vault: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s.recorder.Record(audit.Entry{
			AccountID:     claims.AccountID,
			Action:        audit.ActionVaultCreate,
			Target:        v.Name,
			SourceAddress: getClientIP(r),
		})
		writeJSONStatus(w, http.StatusCreated, map[string]string{"vault_id": v.ID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleVaultSubtree routes /api/vaults/{id}, /api/vaults/{id}/secrets and
// /api/vaults/{id}/secrets/{name}.
func (s *Server) handleVaultSubtree(w http.ResponseWriter, r *http.Request) {
	claims, accTier, ok := s.accountTier(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/vaults/")
	parts := strings.SplitN(rest, "/", 3)
	vaultID := parts[0]
	if vaultID == "" {
		http.NotFound(w, r)
		return
	}

	vault, err := s.ownedVault(r, claims, vaultID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	if err != nil {
		s.logger.Printf("get vault: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.deleteVault(w, r, claims, vault)

	case parts[1] == "secrets" && len(parts) == 2:
		switch r.Method {
		case http.MethodGet:
			s.listSecrets(w, r, vault)
		case http.MethodPost:
			s.upsertSecret(w, r, claims, accTier, vault)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	case parts[1] == "secrets" && len(parts) == 3:
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.deleteSecret(w, r, claims, vault, parts[2])

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) deleteVault(w http.ResponseWriter, r *http.Request, claims *auth.Claims, vault storage.Vault) {
	if err := s.vaults.DeleteVault(r.Context(), vault.ID); err != nil {
		s.logger.Printf("delete vault: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Sessions survive for the audit trail but must never resolve to a
	// deleted vault's secrets again. Revoking is the cascade.
	if err := s.sessions.RevokeByVault(r.Context(), vault.ID, s.now()); err != nil {
		s.logger.Printf("revoke sessions for deleted vault %s: %v", vault.ID, err)
	}
	s.recorder.Record(audit.Entry{
		AccountID:     claims.AccountID,
		Action:        audit.ActionVaultDelete,
		Target:        vault.Name,
		SourceAddress: getClientIP(r),
	})
	w.WriteHeader(http.StatusNoContent)
}

type upsertSecretRequest struct {
	Name           string `json:"name"`
	EncryptedValue string `json:"encrypted_value"`
	IV             string `json:"iv"`
	Salt           string `json:"salt"`
}

func (s *Server) upsertSecret(w http.ResponseWriter, r *http.Request, claims *auth.Claims, accTier tier.Tier, vault storage.Vault) {
	limits := tier.LimitsFor(accTier)
	var req upsertSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	ct, errCT := base64.StdEncoding.DecodeString(req.EncryptedValue)
	iv, errIV := base64.StdEncoding.DecodeString(req.IV)
	salt, errSalt := base64.StdEncoding.DecodeString(req.Salt)
	if errCT != nil || errIV != nil || errSalt != nil {
		writeError(w, http.StatusBadRequest, "encrypted_value, iv and salt must be base64")
		return
	}
	env, err := secret.NewEnvelope(req.Name, ct, iv, salt, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Limit applies to new names only; updating in place is always allowed.
	if _, getErr := s.vaults.GetSecret(r.Context(), vault.ID, env.Name); errors.Is(getErr, storage.ErrNotFound) {
		n, err := s.vaults.CountSecrets(r.Context(), vault.ID)
		if err != nil {
			s.logger.Printf("count secrets: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if n >= limits.MaxSecretsPerVault {
			writeError(w, http.StatusForbidden,
				fmt.Sprintf("secret limit reached: %d per vault on %s tier", limits.MaxSecretsPerVault, accTier))
			return
		}
	}

	created, err := s.vaults.UpsertSecret(r.Context(), vault.ID, *env)
	if err != nil {
		s.logger.Printf("upsert secret: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	action := audit.ActionSecretUpdate
	status := http.StatusOK
	if created {
		action = audit.ActionSecretCreate
		status = http.StatusCreated
	}
	s.recorder.Record(audit.Entry{
		AccountID:     claims.AccountID,
		Action:        action,
		Target:        env.Name,
		SourceAddress: getClientIP(r),
	})
	writeJSONStatus(w, status, map[string]string{"name": env.Name})
}

func (s *Server) listSecrets(w http.ResponseWriter, r *http.Request, vault storage.Vault) {
	envs, err := s.vaults.ListSecrets(r.Context(), vault.ID, nil)
	if err != nil {
		s.logger.Printf("list secrets: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	type listedSecret struct {
		wireSecret
		CreatedAt      time.Time `json:"created_at"`
		UpdatedAt      time.Time `json:"updated_at"`
		LastAccessedAt time.Time `json:"last_accessed_at,omitempty"`
	}
	out := make([]listedSecret, 0, len(envs))
	for _, env := range envs {
		out = append(out, listedSecret{
			wireSecret:     toWireSecret(env),
			CreatedAt:      env.CreatedAt,
			UpdatedAt:      env.UpdatedAt,
			LastAccessedAt: env.LastAccessedAt,
		})
	}
	writeJSON(w, map[string]any{"secrets": out})
}

func (s *Server) deleteSecret(w http.ResponseWriter, r *http.Request, claims *auth.Claims, vault storage.Vault, rawName string) {
	name := secret.NormalizeName(rawName)
	if err := s.vaults.DeleteSecret(r.Context(), vault.ID, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "secret not found")
			return
		}
		s.logger.Printf("delete secret: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.recorder.Record(audit.Entry{
		AccountID:     claims.AccountID,
		Action:        audit.ActionSecretDelete,
		Target:        name,
		SourceAddress: getClientIP(r),
	})
	w.WriteHeader(http.StatusNoContent)
}
