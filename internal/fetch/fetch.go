// Package fetch retrieves remote documents (feed XML, channel pages) over
// HTTP with a bounded timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single fetch, redirects included.
const DefaultTimeout = 10 * time.Second

// Upstream pages (YouTube especially) serve stripped-down markup to
// unrecognized clients, so present a browser-ish agent.
const userAgent = "Mozilla/5.0 (compatible; veilleur/1.0; +https://github.com/jbellamy/veilleur)"

// Bound how much of a response we are willing to read.
const maxBodyBytes = 10 << 20

// ErrKind classifies a transport failure.
type ErrKind int

const (
	KindUnreachable ErrKind = iota
	KindTimeout
	KindHTTPStatus
)

// Error is the typed failure a fetch surfaces. Retry policy belongs to the
// caller, never to the fetcher itself.
type Error struct {
	Kind   ErrKind
	Status int // Set when Kind is KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("fetch timed out: %s", e.Err)
	case KindHTTPStatus:
		return fmt.Sprintf("unexpected status code: %d", e.Status)
	default:
		return fmt.Sprintf("fetch failed: %s", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Document is a successfully fetched response body plus the URL it finally
// resolved to after redirects.
type Document struct {
	Body     string
	FinalURL string
}

// Client fetches remote documents.
type Client struct {
	http *http.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves url and returns its body as text. Non-2xx responses,
// unreachable hosts, and deadline overruns all come back as a typed *Error.
func (c *Client) Fetch(ctx context.Context, url string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, &Error{Kind: KindUnreachable, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindUnreachable
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			kind = KindTimeout
		}
		return Document{}, &Error{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, &Error{Kind: KindHTTPStatus, Status: resp.StatusCode, Err: fmt.Errorf("status %d fetching %s", resp.StatusCode, url)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Document{}, &Error{Kind: KindUnreachable, Err: fmt.Errorf("error reading body: %w", err)}
	}

	return Document{
		Body:     string(body),
		FinalURL: resp.Request.URL.String(),
	}, nil
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
