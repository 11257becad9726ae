// Package probe checks whether media URLs are directly reachable and builds proxied fallbacks.
package probe

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/network"
)

const sniffBytes = 1024

// Result is what a probe observed. Status is 0 when the URL could not be reached at all.
type Result struct {
	Status int
	MIME   string
}

// Options configures a Prober.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	Fingerprint bool
}

// Prober issues lightweight requests against candidate media URLs.
type Prober struct {
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// New creates a Prober.
func New(opts Options) *Prober {
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Prober{
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		client:    network.NewClient(network.Options{MaxRedirects: network.NoRedirects, Fingerprint: opts.Fingerprint}),
	}
}

// Probe sends HEAD to u without following redirects.
// When HEAD fails or is refused it falls back to a ranged GET of at most 1 KiB.
func (p *Prober) Probe(ctx context.Context, u, referer string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if referer == "" {
		referer = embed.Origin(u)
	}

	res, err := p.head(ctx, u, referer)
	if err == nil && !refused(res.Status) {
		return res
	}

	ranged, rerr := p.rangedGet(ctx, u, referer)
	if rerr != nil {
		log.Debugf("probe %s: %s", u, rerr)
		if err == nil {
			return res
		}
		return Result{}
	}
	return ranged
}

func refused(status int) bool {
	return status == http.StatusForbidden || status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented
}

func (p *Prober) newRequest(ctx context.Context, method, u, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "*/*")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}

func (p *Prober) head(ctx context.Context, u, referer string) (Result, error) {
	req, err := p.newRequest(ctx, http.MethodHead, u, referer)
	if err != nil {
		return Result{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	return Result{Status: resp.StatusCode, MIME: mediaType(resp.Header.Get("Content-Type"))}, nil
}

func (p *Prober) rangedGet(ctx context.Context, u, referer string) (Result, error) {
	req, err := p.newRequest(ctx, http.MethodGet, u, referer)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Range", "bytes=0-1023")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	res := Result{Status: resp.StatusCode, MIME: mediaType(resp.Header.Get("Content-Type"))}
	if res.MIME == "" && resp.StatusCode < 300 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, sniffBytes))
		if len(head) > 0 {
			res.MIME = mimetype.Detect(head).String()
		}
	}
	return res, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

// Reachable reports whether status means the URL can be played without the proxy.
func Reachable(status int) bool {
	return status == http.StatusOK || status == http.StatusPartialContent || status == http.StatusFound
}

// ProxyLink returns the streaming proxy URL for u.
func ProxyLink(proxyBase, u string) string {
	return strings.TrimRight(proxyBase, "/") + "/stream?u=" + url.QueryEscape(u)
}

// MakePlayableLink returns u when it is directly reachable, otherwise its proxied form.
func (p *Prober) MakePlayableLink(ctx context.Context, u, referer, proxyBase string) (string, bool) {
	if Reachable(p.Probe(ctx, u, referer).Status) {
		return u, false
	}
	return ProxyLink(proxyBase, u), true
}
