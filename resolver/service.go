package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/internal/cache"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/rank"
)

// MinTimeout is the lowest per-link timeout a caller can ask for.
const MinTimeout = 100 * time.Millisecond

// ErrNoURLs is returned for requests without any embed URL.
var ErrNoURLs = errors.New("urls must be a non-empty array of strings")

// CacheStatus tells whether a response was served from the cache.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// Request is one batch resolution call.
type Request struct {
	URLs []string
	// PerLinkTimeout of zero uses the service default.
	PerLinkTimeout time.Duration
	// Bypass skips the cache read. The fresh result is still written.
	Bypass    bool
	UserAgent string
}

// Response carries one result per input URL.
type Response struct {
	Results []embed.Result `json:"results"`
	Cache   CacheStatus    `json:"cache"`
	Stats   embed.Stats    `json:"stats"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	TTL            time.Duration
	SupportedOnly  bool
	UserAgent      string
	Now            func() time.Time
}

// Service wraps the orchestrator with request validation and the result cache.
type Service struct {
	orchestrator *Orchestrator
	cache        *cache.Cache
	opts         ServiceOptions
}

// NewService creates a Service. A nil cache disables caching.
func NewService(o *Orchestrator, c *cache.Cache, opts ServiceOptions) *Service {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 3 * time.Second
	}
	if opts.MaxTimeout < MinTimeout {
		opts.MaxTimeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{orchestrator: o, cache: c, opts: opts}
}

// Orchestrator exposes the underlying orchestrator.
func (s *Service) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// Cache exposes the result cache, nil when caching is disabled.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Timeout clamps a requested per-link timeout to the allowed range.
func (s *Service) Timeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = s.opts.DefaultTimeout
	}
	return min(max(requested, MinTimeout), s.opts.MaxTimeout)
}

// Resolve serves req from the cache when possible, otherwise resolves and caches the batch.
// A batch cut short by ctx is returned but not cached.
func (s *Service) Resolve(ctx context.Context, req Request) (*Response, error) {
	inputs := lo.Map(req.URLs, func(u string, _ int) string {
		return strings.TrimSpace(u)
	})
	unique := cache.NormalizeURLs(inputs)
	if len(unique) == 0 {
		return nil, ErrNoURLs
	}

	started := s.opts.Now()
	timeout := s.Timeout(req.PerLinkTimeout)

	ua := req.UserAgent
	if ua == "" {
		ua = s.opts.UserAgent
	}
	key := cache.RequestKey(unique, ua, s.opts.SupportedOnly)

	entry := log.WithFields(log.Fields{"key": key[:12], "urls": len(unique)})

	if s.cache != nil && !req.Bypass {
		if cached, ok := s.cache.Get(ctx, key).Get(); ok {
			entry.Debug("cache hit")
			return s.respond(inputs, embed.Batch{URLs: cached.URLs, Results: cached.Results}, CacheHit, started), nil
		}
	}

	batch := s.orchestrator.Resolve(ctx, unique, timeout)

	switch {
	case s.cache == nil:
	case ctx.Err() != nil:
		entry.WithError(ctx.Err()).Warn("request ended mid resolution, not caching")
	default:
		now := s.opts.Now()
		err := s.cache.Put(ctx, cache.Entry{
			Key:       key,
			URLs:      unique,
			Results:   batch.Results,
			CreatedAt: now,
			ExpireAt:  cache.ExpireAt(now, s.opts.TTL, batch.Results, rank.ExpiryOf),
			Meta: cache.Meta{
				PerLinkTimeoutMs: timeout.Milliseconds(),
				UserAgent:        ua,
				ExtractorVersion: constant.ExtractorVersion,
			},
		})
		if err != nil {
			entry.WithError(err).Warn("cache write failed")
		}
	}

	resp := s.respond(inputs, batch, CacheMiss, started)
	entry.WithFields(log.Fields{
		"successful": resp.Stats.Successful,
		"failed":     resp.Stats.Failed,
		"ms":         resp.Stats.DurationMs,
	}).Info("resolved batch")
	return resp, nil
}

// respond lays resolved out in input order, one result per input.
// Blank inputs never reach the orchestrator and fail as invalid URLs.
func (s *Service) respond(inputs []string, resolved embed.Batch, status CacheStatus, started time.Time) *Response {
	out := embed.Batch{URLs: inputs, Results: make([]embed.Result, len(inputs))}
	for i, u := range inputs {
		r, ok := resolved.Find(u)
		switch {
		case u == "":
			r = embed.Failed(u, embed.HostOther, embed.ErrInvalidURL)
		case !ok:
			r = embed.Failed(u, embed.HostOther, embed.ErrNoPatternMatch)
		}
		out.Results[i] = r
	}

	out.Tally(s.orchestrator.Supported)
	out.Stats.DurationMs = s.opts.Now().Sub(started).Milliseconds()

	return &Response{Results: out.Results, Cache: status, Stats: out.Stats}
}
