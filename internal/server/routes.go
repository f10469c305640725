package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/signup", s.handleSignup)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)

	s.mux.HandleFunc("/api/vaults", s.handleVaults)
	s.mux.HandleFunc("/api/vaults/", s.handleVaultSubtree)

	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/sessions/", s.handleSessionSubtree)

	s.mux.HandleFunc("/api/audit", s.handleAudit)

	s.mux.HandleFunc("/api/agent/secrets", s.handleAgentSecrets)
	s.mux.HandleFunc("/api/agent/session", s.handleAgentSession)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
