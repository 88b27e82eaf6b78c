// Package anomaly is a typed client for the external wallet scoring
// backend. The backend is an external collaborator; this client only
// fetches and decodes what it returns.
package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 10 * time.Second

// Score is the backend's per-wallet anomaly record.
type Score struct {
	Wallet        string          `json:"wallet"`
	AnomalyScore  float64         `json:"anomaly_score"`
	NetTokenFlow  decimal.Decimal `json:"net_token_flow"`
	SendRecvRatio float64         `json:"send_recv_ratio"`
}

// HistoryPoint is one sample of a wallet's score over time.
type HistoryPoint struct {
	Timestamp    string  `json:"timestamp"` // ISO 8601
	AnomalyScore float64 `json:"anomaly_score"`
}

// Transfer is a decoded ERC-20 transfer involving a wallet.
type Transfer struct {
	TokenContract string          `json:"token_contract"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Value         decimal.Decimal `json:"value"`
	Timestamp     string          `json:"timestamp,omitempty"`
}

// UpstreamError reports a non-2xx response from the scoring backend.
type UpstreamError struct {
	Status int
	Path   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("anomaly backend returned %d for %s", e.Status, e.Path)
}

// Client talks to the scoring backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the backend at baseURL. A timeout of zero
// selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// TopAnomalies returns the topN highest-scoring wallets.
func (c *Client) TopAnomalies(ctx context.Context, topN int) ([]Score, error) {
	path := "/anomalies"
	if topN > 0 {
		path += "?top_n=" + strconv.Itoa(topN)
	}
	var out []Score
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WalletAnomaly returns the score record for one wallet.
func (c *Client) WalletAnomaly(ctx context.Context, address string) (*Score, error) {
	var out Score
	if err := c.get(ctx, "/anomaly/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletHistory returns the wallet's score history, oldest first.
func (c *Client) WalletHistory(ctx context.Context, address string) ([]HistoryPoint, error) {
	var out []HistoryPoint
	if err := c.get(ctx, "/anomaly-history/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WalletTransfers returns up to limit recent transfers for the wallet.
func (c *Client) WalletTransfers(ctx context.Context, address string, limit int) ([]Transfer, error) {
	path := "/transfers/" + url.PathEscape(address)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []Transfer
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("anomaly backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Status: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
