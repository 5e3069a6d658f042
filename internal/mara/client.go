// Package mara wraps the MARA marketplace API: three read endpoints, one
// write endpoint, and the process-local allocation cache that reconciles
// what we asked for with what the site reports.
package mara

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/maraops/mara-agent/internal/domain"
	"github.com/maraops/mara-agent/internal/econ"
)

const (
	defaultBaseURL  = "https://mara-hackathon-api.onrender.com"
	apiKeyHeader    = "X-Api-Key"
	applicationJSON = "application/json"

	requestTimeout = 15 * time.Second
)

// Client talks to the MARA API for one site.
//
// The allocation cache has exactly two writers: FetchSiteStatus seeds it
// once from the first snapshot, UpdateAllocation replaces it on every
// successful push. Reads are safe from any number of goroutines.
type Client struct {
	baseURL string
	apiKey  string

	mu    sync.RWMutex
	alloc domain.Allocation // nil until seeded or pushed

	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a MARA API client. An empty baseURL selects the public
// marketplace endpoint.
func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0 // the caller decides whether to retry
	retryClient.HTTPClient.Timeout = requestTimeout
	retryClient.Logger = nil // suppress default logging
	// hand back the final response instead of a "giving up" error, so
	// non-2xx statuses stay visible to the caller
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    retryClient.StandardClient(),
		logger:  logger,
	}
}

// FetchPrices returns the marketplace price history, newest sample first.
func (c *Client) FetchPrices(ctx context.Context) ([]domain.PriceSample, error) {
	body, err := c.doRequest(ctx, "prices", http.MethodGet, "/prices", nil, false)
	if err != nil {
		return nil, err
	}

	var prices []domain.PriceSample
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, &domain.RemoteError{Op: "prices", Err: fmt.Errorf("decode response: %w", err)}
	}
	return prices, nil
}

// FetchInventory returns the per-unit hardware specs.
func (c *Client) FetchInventory(ctx context.Context) (domain.Inventory, error) {
	body, err := c.doRequest(ctx, "inventory", http.MethodGet, "/inventory", nil, false)
	if err != nil {
		return domain.Inventory{}, err
	}

	var inv domain.Inventory
	if err := json.Unmarshal(body, &inv); err != nil {
		return domain.Inventory{}, &domain.RemoteError{Op: "inventory", Err: fmt.Errorf("decode response: %w", err)}
	}
	return inv, nil
}

// FetchSiteStatus returns the remote snapshot of the site. The first
// successful call seeds the allocation cache from the reported counts;
// once seeded (or pushed) later snapshots leave the cache alone.
func (c *Client) FetchSiteStatus(ctx context.Context) (domain.SiteStatus, error) {
	body, err := c.doRequest(ctx, "site status", http.MethodGet, "/machines", nil, true)
	if err != nil {
		return domain.SiteStatus{}, err
	}

	var status domain.SiteStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return domain.SiteStatus{}, &domain.RemoteError{Op: "site status", Err: fmt.Errorf("decode response: %w", err)}
	}

	c.mu.Lock()
	if c.alloc == nil {
		c.alloc = status.Counts()
		c.logger.Info("seeded allocation cache from site status",
			"total_units", c.alloc.Total(),
		)
	}
	c.mu.Unlock()

	return status, nil
}

// UpdateAllocation normalizes alloc to the five-key payload, pushes it to
// the marketplace and, on success, unconditionally replaces the cache with
// the normalized payload. The server's confirmation is returned as-is.
func (c *Client) UpdateAllocation(ctx context.Context, alloc domain.Allocation) (domain.SiteStatus, error) {
	payload := alloc.Normalize()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return domain.SiteStatus{}, fmt.Errorf("marshal allocation: %w", err)
	}

	body, err := c.doRequest(ctx, "update allocation", http.MethodPut, "/machines", reqBody, true)
	if err != nil {
		return domain.SiteStatus{}, err
	}

	var confirmation domain.SiteStatus
	if err := json.Unmarshal(body, &confirmation); err != nil {
		return domain.SiteStatus{}, &domain.RemoteError{Op: "update allocation", Err: fmt.Errorf("decode response: %w", err)}
	}

	c.mu.Lock()
	c.alloc = payload
	c.mu.Unlock()

	c.logger.Info("allocation updated",
		"total_units", payload.Total(),
	)
	return confirmation, nil
}

// CachedAllocation returns a copy of the cached allocation, or false when
// nothing has been seeded or pushed yet.
func (c *Client) CachedAllocation() (domain.Allocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.alloc == nil {
		return nil, false
	}
	return c.alloc.Normalize(), true
}

// ClearCache drops the cached allocation, letting the next site status
// fetch seed it again.
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.alloc = nil
	c.mu.Unlock()
}

// Reconcile merges the cached allocation into a remote snapshot and
// attaches the projected economics. Without a cached allocation the
// snapshot is returned untouched and Economics stays nil: there is no
// local plan to project.
func (c *Client) Reconcile(status domain.SiteStatus, inv domain.Inventory, prices []domain.PriceSample) domain.Reconciled {
	alloc, ok := c.CachedAllocation()
	if !ok {
		return domain.Reconciled{SiteStatus: status}
	}

	eco := econ.Project(alloc, inv, prices)
	return domain.Reconciled{
		SiteStatus: status.WithCounts(alloc),
		Economics:  &eco,
	}
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body []byte, auth bool) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", applicationJSON)
	if auth {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &domain.RemoteError{Op: op, Status: resp.StatusCode, Body: truncate(respBody, 256)}
		c.logger.Error("MARA API error",
			"op", op,
			"status", resp.StatusCode,
			"body", remote.Body,
		)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, &domain.AuthError{Remote: remote}
		}
		return nil, remote
	}

	return respBody, nil
}

// truncate shortens b to at most n bytes, backing up so a multi-byte
// UTF-8 rune is never cut in half.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "..."
}
