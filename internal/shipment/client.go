// Package shipment talks to the external shipment-issuance system: it reads
// shipment status for the settlement jobs and mirrors client balances.
package shipment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL string
	Token   string
	// Pacing is the minimum delay between two outgoing calls.
	Pacing  time.Duration
	Timeout time.Duration
}

// Client is safe for concurrent use. Calls are serialized through a rate
// limiter so a batch job never exceeds one request per Pacing interval.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.Pacing > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.Pacing), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: lim,
	}
}

type statusPayload struct {
	Status *string `json:"status"`
}

// Status fetches the current state of shipmentRef.
func (c *Client) Status(ctx context.Context, shipmentRef string) (Status, error) {
	if strings.TrimSpace(shipmentRef) == "" {
		return Status{}, fmt.Errorf("shipment: empty reference")
	}
	resp, err := c.do(ctx, http.MethodGet, "/shipments/"+url.PathEscape(shipmentRef), nil)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownShipment, shipmentRef)
	case resp.StatusCode != http.StatusOK:
		return Status{}, unexpected(resp)
	}

	var p statusPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}
	if p.Status == nil {
		return Status{}, ErrMalformedStatus
	}
	return ParseStatus(*p.Status)
}

// SyncBalance overwrites the balance shown for accountID in the issuance system.
func (c *Client) SyncBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	body, err := json.Marshal(map[string]string{"balance": balance.StringFixed(2)})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/accounts/"+url.PathEscape(accountID)+"/balance", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return unexpected(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func unexpected(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("shipment: %s %s: status %d: %s",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(b)))
}
