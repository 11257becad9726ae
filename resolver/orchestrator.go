// Package resolver turns batches of embed URLs into direct or proxied media links.
package resolver

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/probe"
	"github.com/vidresolve/vidresolve/rank"
	"github.com/vidresolve/vidresolve/strategy"
	"github.com/vidresolve/vidresolve/util"
)

// Prober checks whether a candidate can be played without the proxy.
type Prober interface {
	Probe(ctx context.Context, u, referer string) probe.Result
}

// Options configures an Orchestrator.
type Options struct {
	Concurrency   int
	SupportedOnly bool
	// ProxyBase prefixes proxied links. Empty yields relative /stream links.
	ProxyBase string
	Now       func() time.Time
}

// Orchestrator resolves embed URLs concurrently, each under its own deadline.
type Orchestrator struct {
	registry *strategy.Registry
	fetcher  strategy.Fetcher
	prober   Prober
	opts     Options
}

// NewOrchestrator creates an Orchestrator. A nil prober disables probing:
// the best ranked candidate is returned as is.
func NewOrchestrator(registry *strategy.Registry, fetcher strategy.Fetcher, prober Prober, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		registry: registry,
		fetcher:  fetcher,
		prober:   prober,
		opts:     opts,
	}
}

// Registry exposes the strategy registry.
func (o *Orchestrator) Registry() *strategy.Registry {
	return o.registry
}

// Resolve returns a batch with exactly one result per URL, in input order.
func (o *Orchestrator) Resolve(ctx context.Context, urls []string, perLinkTimeout time.Duration) embed.Batch {
	started := o.opts.Now()
	b := embed.Batch{URLs: urls, Results: make([]embed.Result, len(urls))}

	if len(urls) > 0 {
		p := pool.New().WithMaxGoroutines(util.Min(o.opts.Concurrency, len(urls)))
		for i, u := range urls {
			p.Go(func() {
				b.Results[i] = o.unit(ctx, u, perLinkTimeout)
			})
		}
		p.Wait()
	}

	b.Tally(o.Supported)
	b.Stats.DurationMs = o.opts.Now().Sub(started).Milliseconds()
	return b
}

// Supported reports whether embedURL is handled by a dedicated strategy.
func (o *Orchestrator) Supported(embedURL string) bool {
	return o.registry.Supported(embed.HostOf(embedURL))
}

// unit races one resolution against its deadline.
// A unit that overruns is abandoned and reported as a timeout; siblings are unaffected.
// Cancellation of parent is not a timeout: unfinished units report ErrAborted.
func (o *Orchestrator) unit(parent context.Context, embedURL string, timeout time.Duration) embed.Result {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s := o.registry.StrategyFor(embed.HostOf(embedURL))
	hostType := strategy.HostType(s)
	entry := log.WithFields(log.Fields{"url": embedURL, "host": hostType})

	done := make(chan embed.Result, 1)
	go func() {
		done <- o.resolveOne(ctx, embedURL, s)
	}()

	select {
	case r := <-done:
		if !r.Success && parent.Err() != nil {
			return embed.Failed(embedURL, hostType, embed.ErrAborted)
		}
		return r
	case <-ctx.Done():
		if parent.Err() != nil {
			entry.Debug("resolution aborted")
			return embed.Failed(embedURL, hostType, embed.ErrAborted)
		}
		entry.Warn("resolution timed out")
		return embed.Failed(embedURL, hostType, embed.ErrTimeout)
	}
}

func (o *Orchestrator) resolveOne(ctx context.Context, embedURL string, s strategy.HostStrategy) embed.Result {
	hostType := strategy.HostType(s)
	entry := log.WithFields(log.Fields{"url": embedURL, "strategy": s.Name()})

	if !embed.IsAbsoluteHTTP(embedURL) {
		return embed.Failed(embedURL, hostType, embed.ErrInvalidURL)
	}
	if o.opts.SupportedOnly && s.Kind() == strategy.KindGeneric {
		return embed.Failed(embedURL, hostType, embed.ErrUnsupportedHost)
	}

	candidates, err := s.Extract(ctx, embedURL, o.fetcher)
	if err != nil {
		entry.WithError(err).Debug("extraction failed")
		return embed.Failed(embedURL, hostType, err)
	}

	ranked, err := rank.FilterAndRank(embedURL, candidates, o.opts.Now())
	if err != nil {
		entry.WithError(err).Debugf("no usable candidate among %d", len(candidates))
		return embed.Failed(embedURL, hostType, err)
	}

	best, proxied := o.pick(ctx, ranked, embed.Origin(embedURL))
	link := best.URL
	if proxied {
		link = probe.ProxyLink(o.opts.ProxyBase, best.URL)
	}

	entry.WithField("proxied", proxied).Debug("resolved")
	return embed.Succeeded(embedURL, hostType, link, best.Format, proxied)
}

// pick walks the ranked candidates and returns the first directly reachable one.
// Probes carry referer, the origin of the embed page, as a player on that page would.
// When no candidate is reachable, the best one is returned for proxying.
func (o *Orchestrator) pick(ctx context.Context, ranked []embed.Candidate, referer string) (embed.Candidate, bool) {
	if o.prober == nil {
		return ranked[0], false
	}

	for _, c := range ranked {
		if ctx.Err() != nil {
			break
		}
		if probe.Reachable(o.prober.Probe(ctx, c.URL, referer).Status) {
			return c, false
		}
	}
	return ranked[0], true
}
