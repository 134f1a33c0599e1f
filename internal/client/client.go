// Package client provides an HTTP client for the pdfmatch server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sprjihoon/pdf01/internal/models"
)

// Client talks to the JSON API of pdfmatch-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses PDFMATCH_SERVER_URL or defaults to localhost:8080.
// Timeout can be configured via PDFMATCH_CLIENT_TIMEOUT (default 5m for large folders).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("PDFMATCH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("PDFMATCH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiError is the error body returned by the server.
type apiError struct {
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute sends a request with an optional JSON body and decodes the JSON
// response into result when non-nil.
func (c *Client) Execute(ctx context.Context, method, path string, body, result any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("server error: %s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Failure is a file the server could not read.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SearchResponse is the result of a remote search.
type SearchResponse struct {
	Result    *models.SearchResult `json:"result"`
	Scanned   int                  `json:"scanned"`
	Total     int                  `json:"total"`
	Failures  []Failure            `json:"failures"`
	Cancelled bool                 `json:"cancelled"`
}

// Search finds the latest document containing identifier in a server folder.
// An empty folder uses the server's configured folder.
func (c *Client) Search(ctx context.Context, folder, identifier string) (*SearchResponse, error) {
	var out SearchResponse
	body := map[string]string{"folder": folder, "identifier": identifier}
	if err := c.Execute(ctx, http.MethodPost, "/api/search", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchResponse is the assignment of text-only pages to identifiers.
type MatchResponse struct {
	Assignment models.Assignment `json:"assignment"`
	Order      []int             `json:"order"`
	Labels     map[int]string    `json:"labels"`
	Matched    int               `json:"matched"`
	Unmatched  int               `json:"unmatched"`
}

// Match assigns pages to identifiers on the server.
func (c *Client) Match(ctx context.Context, identifiers, pages []string, fuzzy bool) (*MatchResponse, error) {
	var out MatchResponse
	body := map[string]any{"identifiers": identifiers, "pages": pages, "fuzzy": fuzzy}
	if err := c.Execute(ctx, http.MethodPost, "/api/match", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Job is the state of a background job on the server.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Total       int             `json:"total"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// IndexResult is the result of a completed index job.
type IndexResult struct {
	Results  []models.SearchResult `json:"results"`
	Scanned  int                   `json:"scanned"`
	Total    int                   `json:"total"`
	Failures []Failure             `json:"failures"`
}

// StartIndex starts a background index of a server folder.
func (c *Client) StartIndex(ctx context.Context, folder string) (*Job, error) {
	var job Job
	if err := c.Execute(ctx, http.MethodPost, "/api/index", map[string]string{"folder": folder}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.Execute(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitJob polls the job every interval until it finishes or ctx ends.
// onUpdate, when set, receives every polled state.
func (c *Client) WaitJob(ctx context.Context, id string, interval time.Duration, onUpdate func(*Job)) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(job)
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
