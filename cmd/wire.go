package cmd

import (
	"context"

	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/config"
	"github.com/vidresolve/vidresolve/fetch"
	"github.com/vidresolve/vidresolve/internal/cache"
	"github.com/vidresolve/vidresolve/key"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/probe"
	"github.com/vidresolve/vidresolve/resolver"
	"github.com/vidresolve/vidresolve/strategy"
	"github.com/vidresolve/vidresolve/strategy/script"
	"github.com/vidresolve/vidresolve/where"
)

// engine is the resolution stack assembled from configuration.
type engine struct {
	fetcher  *fetch.Fetcher
	registry *strategy.Registry
	cache    *cache.Cache
	service  *resolver.Service
	scripts  []strategy.HostStrategy
}

func loadScripts() []strategy.HostStrategy {
	if !viper.GetBool(key.StrategiesScripts) {
		return nil
	}

	scripts, err := script.LoadAll(where.Strategies())
	if err != nil {
		log.Warnf("loading strategy scripts: %s", err)
		return nil
	}
	return scripts
}

func newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{
		UserAgent:    config.UserAgent(),
		Attempts:     uint(max(viper.GetInt(key.FetchAttempts), 1)),
		MaxRedirects: viper.GetInt(key.FetchMaxRedirects),
		Fingerprint:  viper.GetBool(key.FetchTLSFingerprint),
		PageTTL:      config.Seconds(key.FetchPageTTLSeconds),
	})
}

func newEngine(ctx context.Context) (*engine, error) {
	e := &engine{
		fetcher: newFetcher(),
		scripts: loadScripts(),
	}
	e.registry = strategy.Default(e.scripts...)

	var prober resolver.Prober
	if viper.GetBool(key.ResolverProbe) {
		prober = probe.New(probe.Options{
			UserAgent:   config.UserAgent(),
			Timeout:     config.Millis(key.ResolverPerLinkTimeoutMs),
			Fingerprint: viper.GetBool(key.FetchTLSFingerprint),
		})
	}

	orchestrator := resolver.NewOrchestrator(e.registry, e.fetcher, prober, resolver.Options{
		Concurrency:   viper.GetInt(key.ResolverConcurrency),
		SupportedOnly: viper.GetBool(key.ResolverSupportedOnly),
		ProxyBase:     viper.GetString(key.ProxyBaseURL),
	})

	opts := cache.Options{
		TTL:           config.Seconds(key.CacheTTLSeconds),
		SweepInterval: config.Seconds(key.CacheSweepIntervalSeconds),
	}
	if viper.GetBool(key.CacheDurable) {
		opts.DSN = where.Database()
	}
	e.cache = cache.New(opts)
	if err := e.cache.Open(ctx); err != nil {
		e.Close()
		return nil, err
	}

	e.service = resolver.NewService(orchestrator, e.cache, resolver.ServiceOptions{
		DefaultTimeout: config.Millis(key.ResolverPerLinkTimeoutMs),
		MaxTimeout:     config.Millis(key.ResolverMaxTimeoutMs),
		TTL:            config.Seconds(key.CacheTTLSeconds),
		SupportedOnly:  viper.GetBool(key.ResolverSupportedOnly),
		UserAgent:      config.UserAgent(),
	})

	return e, nil
}

// Close releases Lua states and the cache.
func (e *engine) Close() {
	for _, s := range e.scripts {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			log.Warnf("closing cache: %s", err)
		}
	}
}
