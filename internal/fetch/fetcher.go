// Package fetch retrieves pages and images over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "reblock/1.0"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 20 << 20
)

var (
	// ErrTimeout is wrapped by errors caused by the client deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNotHTML is wrapped when a page response is not an HTML document.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrTooLarge is wrapped when a response body exceeds maxBodyBytes.
	ErrTooLarge = errors.New("response body too large")
)

// Options configures an HTTPFetcher. Zero values use defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher fetches web pages and images via HTTP GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
	}
}

// FetchPage retrieves the HTML of the given URL. Responses declaring a
// non-HTML Content-Type are rejected; a missing header is taken as HTML.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, url, "text/html,application/xhtml+xml", requireHTML)
}

// FetchImage retrieves the raw bytes of an image URL.
func (f *HTTPFetcher) FetchImage(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, url, "image/*", nil)
}

func requireHTML(header http.Header) error {
	ct := header.Get("Content-Type")
	if ct == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fmt.Errorf("%w: content type %q", ErrNotHTML, ct)
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return nil
	}
	return fmt.Errorf("%w: content type %q", ErrNotHTML, mediaType)
}

func (f *HTTPFetcher) get(ctx context.Context, url, accept string, check func(http.Header) error) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("fetching %s: %w", url, ErrTimeout)
		}
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	if check != nil {
		if err := check(resp.Header); err != nil {
			return nil, fmt.Errorf("fetching %s: %w", url, err)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("fetching %s: %w (limit %d bytes)", url, ErrTooLarge, maxBodyBytes)
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
