// Package proxy streams media from origins that refuse direct playback.
package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"syscall"

	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/network"
)

const bufferSize = 32 << 10

var mirrored = []string{"Content-Type", "Content-Length", "Accept-Ranges", "Content-Range"}

// Options configures a Proxy.
type Options struct {
	UserAgent    string
	MaxRedirects int
	Fingerprint  bool
}

// Proxy re-issues GET and HEAD requests for the URL in the "u" query parameter
// with the origin's own Referer and pipes the response back.
type Proxy struct {
	userAgent string
	client    *http.Client
	buffers   sync.Pool
}

// New creates a Proxy.
func New(opts Options) *Proxy {
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 5
	}
	return &Proxy{
		userAgent: opts.UserAgent,
		client:    network.NewClient(network.Options{MaxRedirects: opts.MaxRedirects, Fingerprint: opts.Fingerprint}),
		buffers: sync.Pool{New: func() any {
			b := make([]byte, bufferSize)
			return &b
		}},
	}
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "range")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Expose-Headers", "content-length, content-range, accept-ranges")
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or HEAD")
		return
	}

	target := r.URL.Query().Get("u")
	if target == "" || !embed.IsAbsoluteHTTP(target) {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter u must be an absolute http(s) url")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Referer", embed.Origin(target))
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.WithFields(log.Fields{"target": target}).WithError(err).Warn("proxy upstream failure")
		writeError(w, http.StatusBadGateway, string(embed.ProxyUpstreamFailure), err.Error())
		return
	}
	defer resp.Body.Close()

	for _, h := range mirrored {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return
	}

	buf := p.buffers.Get().(*[]byte)
	defer p.buffers.Put(buf)

	if _, err := io.CopyBuffer(w, resp.Body, *buf); err != nil && !clientGone(err) {
		log.WithFields(log.Fields{"target": target}).WithError(err).Debug("proxy copy interrupted")
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrClosedPipe)
}
