// Package fetcher performs the HTTP retrieval of tracker pages.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Reason classifies why a fetch failed.
type Reason string

// Fetch failure reasons.
const (
	ReasonTimeout    Reason = "timeout"
	ReasonConnection Reason = "connection"
	ReasonHTTPStatus Reason = "http-status"
	ReasonDecode     Reason = "decode"
)

// FetchError is the only error type Fetch returns. It never escapes the
// fetch boundary as a panic; the scheduler's next cycle is the retry policy.
type FetchError struct {
	Reason Reason
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxBodyBytes = 5 * 1024 * 1024

// Fetcher downloads tracker pages with a bounded timeout and a configured
// User-Agent. An optional FlareSolverr client handles targets behind
// challenge pages, falling back to a direct request when the proxy fails.
type Fetcher struct {
	client    HTTPClient
	userAgent string
	timeout   time.Duration
	solver    *FlareSolverr
	log       *slog.Logger
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, userAgent string, timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		log:       log,
	}
}

// SetSolver attaches a FlareSolverr client used for targets that request it.
func (f *Fetcher) SetSolver(s *FlareSolverr) {
	f.solver = s
}

// UseSolver resolves the per-target FlareSolverr override against the
// global setting. A nil override means "use the global setting".
func (f *Fetcher) UseSolver(override *bool) bool {
	if override != nil {
		return *override && f.solver != nil
	}
	return f.solver != nil && f.solver.Enabled()
}

// Fetch retrieves the page at url. When useSolver is set it first asks the
// FlareSolverr proxy and only falls back to a direct GET if the proxy fails.
// The returned error is always a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, useSolver bool) (string, error) {
	if useSolver && f.solver != nil {
		content, err := f.solver.Get(ctx, url)
		if err == nil {
			return content, nil
		}
		f.log.Warn("flaresolverr failed, falling back to direct request", "url", url, "error", err)
	}
	return f.fetchDirect(ctx, url)
}

func (f *Fetcher) fetchDirect(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{Reason: ReasonConnection, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Reason: classify(err), URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{
			Reason: ReasonHTTPStatus,
			URL:    url,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{Reason: ReasonDecode, URL: url, Err: err}
	}
	return string(body), nil
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonConnection
}
