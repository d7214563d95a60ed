// Package rest talks to the remote data store over its PostgREST-style HTTP
// API: one endpoint per table, JSON bodies, upsert expressed as a POST with
// merge-duplicates resolution keyed on the primary key.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/log"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *log.Logger
}

// NewClient builds a client for the remote REST API. timeout bounds every
// call; a hung upsert surfaces as a per-record failure instead of stalling a
// whole sync pass.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.Default(log.ComponentRemote),
	}
}

// Upsert inserts or replaces the record in the remote table, keyed by its id.
func (c *Client) Upsert(ctx context.Context, table core.Table, payload json.RawMessage) error {
	if !table.IsValid() {
		return fmt.Errorf("%w: %s", core.ErrUnknownTable, table)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upsert %s: remote returned %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.log.DebugContext(ctx, "Remote upsert confirmed",
		"table", table,
		"status", resp.StatusCode)
	return nil
}

// Healthy probes the remote health endpoint. Any response counts as
// reachable; only transport failures mean offline.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
