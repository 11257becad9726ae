// Package fetch retrieves embed pages and performs the single HTTP exchanges procedural strategies need.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/internal/cache"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/network"
)

// DefaultBodyLimit caps how much of an embed page is read.
const DefaultBodyLimit = 5 << 20

// Options configures a Fetcher.
type Options struct {
	UserAgent    string
	Attempts     uint
	MaxRedirects int
	Fingerprint  bool
	PageTTL      time.Duration
	BodyLimit    int64
	RetryDelay   time.Duration
	Now          func() time.Time
}

// Fetcher loads embed pages with browser headers, retries and a page cache.
type Fetcher struct {
	opts       Options
	client     *http.Client
	noRedirect *http.Client
	pages      *cache.Memory[string]
}

// New creates a Fetcher, filling unset options with defaults.
func New(opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 3
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}

	return &Fetcher{
		opts:       opts,
		client:     network.NewClient(network.Options{MaxRedirects: opts.MaxRedirects, Fingerprint: opts.Fingerprint}),
		noRedirect: network.NewClient(network.Options{MaxRedirects: network.NoRedirects, Fingerprint: opts.Fingerprint}),
		pages:      cache.NewMemory[string](opts.PageTTL, opts.Now),
	}
}

// UserAgent returns the User-Agent sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.opts.UserAgent
}

// statusError marks a non-2xx page response.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	return true
}

// Page returns the body of rawURL, using the page cache when possible.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (string, error) {
	if f.opts.PageTTL > 0 {
		if body, ok := f.pages.Get(rawURL).Get(); ok {
			log.Tracef("page cache hit for %s", rawURL)
			return body, nil
		}
	}

	body, err := retry.DoWithData(
		func() (string, error) {
			return f.page(ctx, rawURL)
		},
		retry.Context(ctx),
		retry.Attempts(f.opts.Attempts),
		retry.Delay(f.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("retrying %s (attempt %d): %s", rawURL, n+2, err)
		}),
	)
	if err != nil {
		return "", classify(ctx, fmt.Errorf("GET %s: %w", rawURL, err))
	}

	if f.opts.PageTTL > 0 {
		f.pages.Set(rawURL, body)
	}
	return body, nil
}

func (f *Fetcher) page(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	f.browserHeaders(req.Header, embed.Origin(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &statusError{status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.BodyLimit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

func (f *Fetcher) browserHeaders(h http.Header, referer string) {
	h.Set("User-Agent", f.opts.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	if referer != "" {
		h.Set("Referer", referer)
	}
}

// classify tags err with Timeout when ctx expired, FetchFailure otherwise.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &embed.Error{Kind: embed.Timeout, Msg: "timed out", Err: err}
	}
	return embed.Wrap(embed.FetchFailure, err)
}

// SweepPages drops expired pages and returns how many were removed.
func (f *Fetcher) SweepPages() int {
	return f.pages.Sweep()
}

// CachedPages counts pages held in the page cache.
func (f *Fetcher) CachedPages() int {
	return f.pages.Len()
}

// RunSweeper sweeps the page cache every interval until ctx is done.
func (f *Fetcher) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := f.SweepPages(); n > 0 {
				log.Debugf("page cache sweep removed %d pages", n)
			}
		}
	}
}
