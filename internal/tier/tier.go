package tier

import "strings"

// Tier is the closed set of subscription tiers. Stored strings outside this
// set normalize to Free rather than being trusted.
type Tier string

const (
	Free       Tier = "free"
	Pro        Tier = "pro"
	Team       Tier = "team"
	Enterprise Tier = "enterprise"
)

func Parse(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Pro:
		return Pro
	case Team:
		return Team
	case Enterprise:
		return Enterprise
	default:
		return Free
	}
}

// Limits is the read-only policy the core consumes; billing owns the rest.
type Limits struct {
	MaxVaults          int
	MaxSecretsPerVault int
	SessionsPerDay     int
	AuditRetentionDays int
	CanExportAudit     bool
}

var limits = map[Tier]Limits{
	Free:       {MaxVaults: 1, MaxSecretsPerVault: 10, SessionsPerDay: 10, AuditRetentionDays: 7, CanExportAudit: false},
	Pro:        {MaxVaults: 5, MaxSecretsPerVault: 100, SessionsPerDay: 100, AuditRetentionDays: 30, CanExportAudit: true},
	Team:       {MaxVaults: 20, MaxSecretsPerVault: 500, SessionsPerDay: 1000, AuditRetentionDays: 90, CanExportAudit: true},
	Enterprise: {MaxVaults: 100, MaxSecretsPerVault: 2000, SessionsPerDay: 10000, AuditRetentionDays: 365, CanExportAudit: true},
}

func LimitsFor(t Tier) Limits {
	if l, ok := limits[t]; ok {
		return l
	}
	return limits[Free]
}
