package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/tier"
)

// handleAudit serves the account's audit trail, windowed by the tier's
// retention period. ?format=csv streams an export, which only exporting
// tiers may use.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, accTier, ok := s.accountTier(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no auth context")
		return
	}
	limits := tier.LimitsFor(accTier)

	format := r.URL.Query().Get("format")
	if format == "csv" && !limits.CanExportAudit {
		writeError(w, http.StatusForbidden,
			fmt.Sprintf("audit export is not available on %s tier", accTier))
		return
	}

	since := s.now().AddDate(0, 0, -limits.AuditRetentionDays)
	entries, err := s.auditStore.ListSince(r.Context(), claims.AccountID, since)
	if err != nil {
		s.logger.Printf("list audit: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if format == "csv" {
		writeAuditCSV(w, entries)
		return
	}
	writeJSON(w, map[string]any{
		"entries":        entries,
		"retention_days": limits.AuditRetentionDays,
	})
}

func writeAuditCSV(w http.ResponseWriter, entries []audit.Entry) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"created_at", "action", "target", "agent_label", "session_id", "source_address"})
	for _, e := range entries {
		_ = cw.Write([]string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.Action),
			e.Target,
			e.AgentLabel,
			e.SessionID,
			e.SourceAddress,
		})
	}
	cw.Flush()
}
