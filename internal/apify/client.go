// Package apify is a minimal client for the Apify v2 actor API. It covers the
// three calls the harvest pipeline needs: starting a website-content-crawler
// run, polling the run until it reaches a terminal status, and listing the
// items of the run's default dataset. Everything else about the crawl
// (discovery, rendering, retries, proxying) happens on the service side.
package apify

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
	"strings"
	"time"
)

const defaultBaseURL = "https://api.apify.com"

// ErrMissingToken is returned by NewClient when no API token is configured.
var ErrMissingToken = errors.New("apify: API token is required")

// ErrRunFailed is returned by WaitForRun when a run reaches a terminal status
// other than SUCCEEDED. Use errors.Is and inspect the wrapped message for the
// actual status.
var ErrRunFailed = errors.New("apify: run did not succeed")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apify: %s (status %d, type %s)", e.Message, e.StatusCode, e.Type)
	}
	return fmt.Sprintf("apify: request failed with status %d", e.StatusCode)
}

// Config holds the explicit client configuration. The token is resolved by
// the caller (CLI/env); the client itself never reads ambient state.
type Config struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the Apify v2 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient validates the config and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
	}, nil
}

// StartRun triggers an actor run with the given input and returns the run
// descriptor without waiting for completion. Actor IDs use the tilde form,
// e.g. "apify~website-content-crawler".
func (c *Client) StartRun(ctx context.Context, actorID string, input RunInput) (Run, error) {
	if actorID == "" {
		return Run{}, errors.New("apify: actor id is required")
	}
	path := fmt.Sprintf("/v2/acts/%s/runs", url.PathEscape(actorID))

	body, err := json.Marshal(input)
	if err != nil {
		return Run{}, fmt.Errorf("marshal run input: %w", err)
	}

	var envelope struct {
		Data Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(body), &envelope); err != nil {
		return Run{}, err
	}
	return envelope.Data, nil
}

// Run fetches the current state of an actor run.
func (c *Client) Run(ctx context.Context, runID string) (Run, error) {
	if runID == "" {
		return Run{}, errors.New("apify: run id is required")
	}
	path := fmt.Sprintf("/v2/actor-runs/%s", url.PathEscape(runID))

	var envelope struct {
		Data Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &envelope); err != nil {
		return Run{}, err
	}
	return envelope.Data, nil
}

// WaitForRun polls the run at the given interval until it reaches a terminal
// status or the context finishes. A terminal status other than SUCCEEDED is
// reported as ErrRunFailed. The first poll happens immediately so short runs
// do not pay a full interval of latency.
func (c *Client) WaitForRun(ctx context.Context, runID string, interval time.Duration) (Run, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := c.Run(ctx, runID)
		if err != nil {
			return Run{}, err
		}
		if run.Terminal() {
			if run.Status != RunStatusSucceeded {
				return run, fmt.Errorf("%w: run %s finished with status %s", ErrRunFailed, runID, run.Status)
			}
			return run, nil
		}

		select {
		case <-ctx.Done():
			return Run{}, fmt.Errorf("apify: wait for run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// DatasetItems lists up to limit items from a dataset. A limit <= 0 fetches
// the service default.
func (c *Client) DatasetItems(ctx context.Context, datasetID string, limit int) ([]Item, error) {
	if datasetID == "" {
		return nil, errors.New("apify: dataset id is required")
	}
	path := fmt.Sprintf("/v2/datasets/%s/items", url.PathEscape(datasetID))

	query := url.Values{}
	query.Set("format", "json")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var items []Item
	if err := c.do(ctx, http.MethodGet, path, query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apify: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apify: decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err == nil {
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
