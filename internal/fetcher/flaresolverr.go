package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FlareSolverr is a client for a FlareSolverr proxy instance, used to fetch
// pages behind anti-bot challenge screens. The monitor itself never renders
// JavaScript; solving is delegated entirely to the proxy.
type FlareSolverr struct {
	enabled    bool
	url        string
	maxTimeout time.Duration
	client     HTTPClient
}

// NewFlareSolverr creates a FlareSolverr client. maxTimeout is the solve
// budget passed to the proxy; the HTTP call itself waits a bit longer.
func NewFlareSolverr(enabled bool, url string, maxTimeout time.Duration, client HTTPClient) *FlareSolverr {
	if url == "" {
		url = "http://flaresolverr:8191/v1"
	}
	if maxTimeout <= 0 {
		maxTimeout = 60 * time.Second
	}
	return &FlareSolverr{
		enabled:    enabled,
		url:        url,
		maxTimeout: maxTimeout,
		client:     client,
	}
}

// Enabled reports whether the proxy is globally enabled.
func (c *FlareSolverr) Enabled() bool { return c.enabled }

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int64  `json:"maxTimeout"`
}

type solverResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		Response string `json:"response"`
	} `json:"solution"`
}

// Get fetches pageURL through the proxy and returns the solved HTML.
func (c *FlareSolverr) Get(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.maxTimeout+15*time.Second)
	defer cancel()

	payload, err := json.Marshal(solverRequest{
		Cmd:        "request.get",
		URL:        pageURL,
		MaxTimeout: c.maxTimeout.Milliseconds(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to flaresolverr: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flaresolverr status %d", resp.StatusCode)
	}

	var sr solverResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if sr.Status != "ok" {
		if sr.Message == "" {
			sr.Message = "unknown error"
		}
		return "", fmt.Errorf("flaresolverr: %s", sr.Message)
	}
	return sr.Solution.Response, nil
}
