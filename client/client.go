// Package client drives the wallet sign-in protocol against a gatekeeper
// server: fetch a challenge, have a wallet provider sign it, submit the
// signature, and hold the resulting session for authenticated calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrProviderUnavailable is returned when no wallet provider was supplied.
var ErrProviderUnavailable = errors.New("wallet provider unavailable")

// ErrNotAuthenticated is returned when an operation needs a session and the
// client holds none.
var ErrNotAuthenticated = errors.New("not signed in")

// WalletProvider is the capability a wallet backend must satisfy. Any
// signer works: a browser extension bridge, a hardware wallet, or a local
// key for tests.
type WalletProvider interface {
	ChainID(ctx context.Context) (uint64, error)
	Address(ctx context.Context) (string, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Client is a gatekeeper protocol client. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	provider WalletProvider

	mu      sync.Mutex
	access  string
	refresh string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL using the given wallet
// provider.
func New(baseURL string, provider WalletProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		provider: provider,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn runs the full protocol: query the provider for chain id and
// address, fetch a challenge, sign it, and submit the signature. On
// success the session tokens are retained for later requests.
func (c *Client) SignIn(ctx context.Context) error {
	if c.provider == nil {
		return ErrProviderUnavailable
	}

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to query chain id: %w", err)
	}
	address, err := c.provider.Address(ctx)
	if err != nil {
		return fmt.Errorf("failed to query address: %w", err)
	}

	challengeURL := c.baseURL + "/auth/challenge?address=" + url.QueryEscape(address) +
		"&chain_id=" + strconv.FormatUint(chainID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, challengeURL, nil)
	if err != nil {
		return err
	}
	var challenge struct {
		Message string `json:"message"`
		Nonce   string `json:"nonce"`
	}
	if err := c.doJSON(req, &challenge); err != nil {
		return fmt.Errorf("failed to fetch challenge: %w", err)
	}

	// Sign the exact challenge bytes.
	sig, err := c.provider.SignMessage(ctx, []byte(challenge.Message))
	if err != nil {
		return fmt.Errorf("wallet refused to sign: %w", err)
	}

	var tokens tokenResponse
	err = c.postJSON(ctx, "/auth/verify", map[string]string{
		"message":   challenge.Message,
		"signature": hexutil.Encode(sig),
	}, &tokens)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	c.mu.Lock()
	c.access = tokens.AccessToken
	c.refresh = tokens.RefreshToken
	c.mu.Unlock()

	return nil
}

// Authenticated reports whether the client holds a session.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access != ""
}

// AccessToken returns the current access token, or empty when signed out.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// Refresh rotates the session tokens.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()
	if refresh == "" {
		return ErrNotAuthenticated
	}

	var tokens tokenResponse
	err := c.postJSON(ctx, "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, &tokens)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.access = tokens.AccessToken
	c.refresh = tokens.RefreshToken
	c.mu.Unlock()

	return nil
}

// SignOut discards the session locally and makes a best-effort server-side
// revocation. The local discard alone is a complete sign-out for a
// stateless session.
func (c *Client) SignOut(ctx context.Context) {
	c.mu.Lock()
	refresh := c.refresh
	c.access = ""
	c.refresh = ""
	c.mu.Unlock()

	if refresh == "" {
		return
	}
	_ = c.postJSON(ctx, "/auth/logout", map[string]string{
		"refresh_token": refresh,
	}, nil)
}

// Do sends req with the session's bearer credential attached. On a 401 it
// refreshes once and retries.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	access := c.access
	c.mu.Unlock()
	if access == "" {
		return nil, ErrNotAuthenticated
	}

	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	resp.Body.Close()
	if err := c.Refresh(req.Context()); err != nil {
		return nil, fmt.Errorf("session expired: %w", err)
	}

	c.mu.Lock()
	access = c.access
	c.mu.Unlock()
	retry := req.Clone(req.Context())
	retry.Header.Set("Authorization", "Bearer "+access)
	return c.http.Do(retry)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
