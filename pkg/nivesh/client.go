// Package nivesh provides a Go SDK for the nivesh-server API.
package nivesh

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

	"nivesh/internal/util"
)

// Client provides a Go SDK for interacting with the nivesh-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new nivesh API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is the {"error": "..."} payload the server returns on failure.
type apiError struct {
	Error string `json:"error"`
}

// Response envelopes, mirroring the server's JSON.
type consensusEnvelope struct {
	Count   int               `json:"count"`
	Signals []ConsensusSignal `json:"signals"`
}

type scanEnvelope struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Signals []ConsensusSignal `json:"signals"`
}

type backtestEnvelope struct {
	Success bool            `json:"success"`
	Result  *BacktestResult `json:"result"`
}

type backtestListEnvelope struct {
	Count   int              `json:"count"`
	Results []BacktestResult `json:"results"`
}

type barsEnvelope struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
	Bars   []Bar  `json:"bars"`
}

// get performs a GET with retry on transient failures and decodes the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return util.Retry(ctx, 3, 200*time.Millisecond, func() error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

// post performs a single POST (no retry; the endpoints are not idempotent)
// and decodes the JSON body into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPost, path, buf, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetConsensus retrieves the latest consensus signal set.
func (c *Client) GetConsensus(ctx context.Context) ([]ConsensusSignal, error) {
	var resp consensusEnvelope
	if err := c.get(ctx, "/api/v1/consensus", &resp); err != nil {
		return nil, err
	}
	return resp.Signals, nil
}

// Scan triggers a universe scan and returns the fresh consensus set.
func (c *Client) Scan(ctx context.Context) ([]ConsensusSignal, error) {
	var resp scanEnvelope
	if err := c.post(ctx, "/api/v1/scan", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Signals, nil
}

// RunBacktest starts a backtest run and waits for its result.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	var resp backtestEnvelope
	if err := c.post(ctx, "/api/v1/backtests", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// GetBacktest retrieves a completed backtest run by ID.
func (c *Client) GetBacktest(ctx context.Context, runID string) (*BacktestResult, error) {
	var resp backtestEnvelope
	if err := c.get(ctx, "/api/v1/backtests/"+url.PathEscape(runID), &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// ListBacktests retrieves summaries of recent backtest runs.
func (c *Client) ListBacktests(ctx context.Context) ([]BacktestResult, error) {
	var resp backtestListEnvelope
	if err := c.get(ctx, "/api/v1/backtests", &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetBars retrieves daily bars for a symbol within [start, end].
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	path := fmt.Sprintf("/api/v1/bars/%s?start=%s&end=%s",
		url.PathEscape(symbol), start.Format("2006-01-02"), end.Format("2006-01-02"))

	var resp barsEnvelope
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Bars, nil
}
