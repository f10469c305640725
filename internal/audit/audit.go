// Package audit records the append-only trail of account and agent activity.
// Entries are immutable; retention is applied when reading, never by deleting
// rows.
package audit

import (
	"context"
	"time"
)

// Action is the closed set of auditable event kinds.
type Action string

const (
	ActionSecretCreate  Action = "SECRET_CREATE"
	ActionSecretAccess  Action = "SECRET_ACCESS"
	ActionSecretUpdate  Action = "SECRET_UPDATE"
	ActionSecretDelete  Action = "SECRET_DELETE"
	ActionSessionCreate Action = "SESSION_CREATE"
	ActionSessionRevoke Action = "SESSION_REVOKE"
	ActionVaultCreate   Action = "VAULT_CREATE"
	ActionVaultDelete   Action = "VAULT_DELETE"
	ActionLogin         Action = "LOGIN"
	ActionLogout        Action = "LOGOUT"
)

type Entry struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Action        Action    `json:"action"`
	Target        string    `json:"target"`
	AgentLabel    string    `json:"agent_label,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	SourceAddress string    `json:"source_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store interface {
	Append(ctx context.Context, e Entry) error
	// ListSince returns entries for the account newer than since, newest
	// first. Retention-window filtering happens here at read time.
	ListSince(ctx context.Context, accountID string, since time.Time) ([]Entry, error)
}
