// Package bridge fetches encrypted envelopes from a vaultagent server and
// turns them into usable environment variables. Decryption happens entirely
// on this side of the wire; the server only ever sees ciphertext.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrBadToken       = errors.New("bridge: invalid or unknown token")
	ErrSessionExpired = errors.New("bridge: session expired")
	ErrSessionRevoked = errors.New("bridge: session revoked")
	ErrRateLimited    = errors.New("bridge: rate limited, retry later")
)

// RemoteSecret is one envelope as fetched, still encrypted.
type RemoteSecret struct {
	Name       string
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
}

// Grant is a successful retrieval: the envelopes plus the session metadata
// that came with them.
type Grant struct {
	Secrets        []RemoteSecret
	AgentName      string
	ExpiresAt      time.Time
	AllowedSecrets []string
}

// SessionStatus mirrors the server's session description endpoint.
type SessionStatus struct {
	AgentName      string
	ExpiresAt      time.Time
	AllowedSecrets []string
	Status         string
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

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

// FetchSecrets retrieves every envelope the session is scoped to.
func (c *Client) FetchSecrets(ctx context.Context) (*Grant, error) {
	body, err := c.get(ctx, "/api/agent/secrets")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Secrets []wireSecret    `json:"secrets"`
		Session wireSessionMeta `json:"session"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bridge: malformed server response: %w", err)
	}

	grant := &Grant{
		Secrets:        make([]RemoteSecret, 0, len(resp.Secrets)),
		AgentName:      resp.Session.AgentName,
		ExpiresAt:      resp.Session.ExpiresAt,
		AllowedSecrets: resp.Session.AllowedSecrets,
	}
	for _, ws := range resp.Secrets {
		rs, err := decodeWireSecret(ws)
		if err != nil {
			return nil, err
		}
		grant.Secrets = append(grant.Secrets, rs)
	}
	return grant, nil
}

// FetchStatus describes the session without touching any secrets. Works on
// expired and revoked sessions too.
func (c *Client) FetchStatus(ctx context.Context) (*SessionStatus, error) {
	body, err := c.get(ctx, "/api/agent/session")
	if err != nil {
		return nil, err
	}
	var resp struct {
		AgentName      string    `json:"agent_name"`
		ExpiresAt      time.Time `json:"expires_at"`
		AllowedSecrets []string  `json:"allowed_secrets"`
		Status         string    `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bridge: malformed server response: %w", err)
	}
	return &SessionStatus{
		AgentName:      resp.AgentName,
		ExpiresAt:      resp.ExpiresAt,
		AllowedSecrets: resp.AllowedSecrets,
		Status:         resp.Status,
	}, nil
}

func decodeWireSecret(ws wireSecret) (RemoteSecret, error) {
	ct, err := base64.StdEncoding.DecodeString(ws.EncryptedValue)
	if err != nil {
		return RemoteSecret{}, fmt.Errorf("bridge: secret %s: bad encrypted_value: %w", ws.Name, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(ws.IV)
	if err != nil {
		return RemoteSecret{}, fmt.Errorf("bridge: secret %s: bad iv: %w", ws.Name, err)
	}
	salt, err := base64.StdEncoding.DecodeString(ws.Salt)
	if err != nil {
		return RemoteSecret{}, fmt.Errorf("bridge: secret %s: bad salt: %w", ws.Name, err)
	}
	return RemoteSecret{Name: ws.Name, Ciphertext: ct, Nonce: nonce, Salt: salt}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("bridge: reading response: %w", err)
	}
	if res.StatusCode == http.StatusOK {
		return body, nil
	}
	return nil, statusError(res.StatusCode, body)
}

// statusError maps the server's error contract onto sentinel errors the CLI
// can present distinctly.
func statusError(code int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)

	switch code {
	case http.StatusUnauthorized:
		switch e.Error {
		case "session expired":
			return ErrSessionExpired
		case "session revoked":
			return ErrSessionRevoked
		default:
			return ErrBadToken
		}
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		if e.Error != "" {
			return fmt.Errorf("bridge: server returned %d: %s", code, e.Error)
		}
		return fmt.Errorf("bridge: server returned %d", code)
	}
}
