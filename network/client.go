// Package network provides the tuned HTTP clients used to fetch embed pages and probe media URLs.
package network

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// NoRedirects makes a client return the first response instead of following Location headers.
const NoRedirects = -1

// ErrTooManyRedirects is returned once a request exceeds its redirect cap.
var ErrTooManyRedirects = errors.New("too many redirects")

// Options configures NewClient.
type Options struct {
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero means the net/http default of 10, NoRedirects disables following.
	MaxRedirects int
	// Fingerprint routes https through a browser TLS fingerprint.
	Fingerprint bool
}

// Client is the shared client for page fetches.
var Client = NewClient(Options{Timeout: time.Minute})

// NewClient builds a client over the tuned transport.
func NewClient(opts Options) *http.Client {
	var transport http.RoundTripper = sharedTransport
	if opts.Fingerprint {
		transport = sharedBrowserTransport
	}

	return &http.Client{
		Timeout:       opts.Timeout,
		Transport:     transport,
		CheckRedirect: checkRedirect(opts.MaxRedirects),
	}
}

func checkRedirect(max int) func(*http.Request, []*http.Request) error {
	switch {
	case max == NoRedirects:
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case max <= 0:
		return nil
	default:
		return func(_ *http.Request, via []*http.Request) error {
			if len(via) > max {
				return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, max)
			}
			return nil
		}
	}
}

var sharedTransport = newTransport()

// newTransport initializes a tuned http.Transport with pool and timeout parameters sized for batch resolution.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}
