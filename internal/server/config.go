package server

import "time"

type Config struct {
	Addr               string
	MongoURI           string
	MongoDB            string
	AccountsCollection string
	JWTIssuer          string
	TokenTTL           time.Duration
	MaxSessionTTL      time.Duration
	DefaultSessionTTL  time.Duration

	// Per-window request budgets for the injected rate limiter.
	AgentRequestsPerMinute int
	LoginAttemptsPerMinute int
	SessionCreatesPerHour  int
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.AccountsCollection == "" {
		c.AccountsCollection = "accounts"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "vaultagent-backend"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.MaxSessionTTL <= 0 {
		c.MaxSessionTTL = 24 * time.Hour
	}
	if c.DefaultSessionTTL <= 0 {
		c.DefaultSessionTTL = time.Hour
	}
	if c.AgentRequestsPerMinute <= 0 {
		c.AgentRequestsPerMinute = 60
	}
	if c.LoginAttemptsPerMinute <= 0 {
		c.LoginAttemptsPerMinute = 10
	}
	if c.SessionCreatesPerHour <= 0 {
		c.SessionCreatesPerHour = 60
	}
}
