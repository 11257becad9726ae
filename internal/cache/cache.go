package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/log"
)

const userAgentKeyPrefix = 100

// Meta records how an entry was produced.
type Meta struct {
	PerLinkTimeoutMs int64  `json:"perLinkTimeoutMs"`
	UserAgent        string `json:"userAgent"`
	ExtractorVersion string `json:"extractorVersion"`
}

// Entry is one cached resolution batch.
type Entry struct {
	Key       string         `json:"requestKey"`
	URLs      []string       `json:"inputUrls"`
	Results   []embed.Result `json:"results"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpireAt  time.Time      `json:"expireAt"`
	Meta      Meta           `json:"meta"`
}

// NormalizeURLs returns the trimmed, deduplicated and sorted set of urls.
func NormalizeURLs(urls []string) []string {
	set := lo.Uniq(lo.Compact(lo.Map(urls, func(u string, _ int) string {
		return strings.TrimSpace(u)
	})))
	sort.Strings(set)
	return set
}

// RequestKey derives the cache key of a resolution request.
func RequestKey(urls []string, userAgent string, supportedOnly bool) string {
	if len(userAgent) > userAgentKeyPrefix {
		userAgent = userAgent[:userAgentKeyPrefix]
	}

	payload, _ := json.Marshal(struct {
		URLs          []string `json:"urls"`
		UserAgent     string   `json:"ua"`
		SupportedOnly bool     `json:"supportedOnly"`
		Schema        string   `json:"schema"`
	}{
		URLs:          NormalizeURLs(urls),
		UserAgent:     userAgent,
		SupportedOnly: supportedOnly,
		Schema:        constant.SchemaVersion,
	})

	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// ExpireAt picks the moment an entry stops being servable:
// now plus ttl, or earlier if a successful direct URL carries an expiry token that lapses first.
func ExpireAt(now time.Time, ttl time.Duration, results []embed.Result, expiryOf func(string) mo.Option[time.Time]) time.Time {
	limit := now.Add(ttl)
	if expiryOf == nil {
		return limit
	}

	for _, r := range results {
		if !r.Success || r.Proxied || r.DirectURL == "" {
			continue
		}
		if exp, ok := expiryOf(r.DirectURL).Get(); ok && exp.Before(limit) {
			limit = exp
		}
	}
	return limit
}

// Options configures a Cache.
type Options struct {
	TTL time.Duration
	// DSN of the sqlite tier. Empty disables the durable tier.
	DSN           string
	SweepInterval time.Duration
	Now           func() time.Time
}

// Cache layers the ephemeral memory tier over the durable sqlite tier.
type Cache struct {
	opts    Options
	memory  *Memory[Entry]
	durable *Durable

	cancel context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Cache. Call Open before use.
func New(opts Options) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		opts:   opts,
		memory: NewMemory[Entry](opts.TTL, opts.Now),
	}
}

// Open opens the durable tier and starts the periodic sweep.
func (c *Cache) Open(ctx context.Context) error {
	if c.opts.DSN != "" {
		durable, err := OpenDurable(ctx, c.opts.DSN, c.opts.Now)
		if err != nil {
			return err
		}
		c.durable = durable
	}

	if c.opts.SweepInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.sweepLoop(sweepCtx)
	}

	return nil
}

func (c *Cache) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warnf("cache sweep: %s", err)
			}
		}
	}
}

// Get returns the entry under key from memory, or from the durable tier with promotion to memory.
func (c *Cache) Get(ctx context.Context, key string) mo.Option[Entry] {
	if entry, ok := c.memory.Get(key).Get(); ok {
		return mo.Some(entry)
	}

	if c.durable == nil {
		return mo.None[Entry]()
	}

	entry, ok, err := c.durable.Get(ctx, key)
	if err != nil {
		log.Warnf("durable cache read: %s", err)
		return mo.None[Entry]()
	}
	if !ok {
		return mo.None[Entry]()
	}

	c.memory.SetUntil(key, entry, entry.ExpireAt)
	return mo.Some(entry)
}

// Put writes entry to both tiers, replacing any previous entry under the same key.
// Entries already expired are ignored.
func (c *Cache) Put(ctx context.Context, entry Entry) error {
	if !c.opts.Now().Before(entry.ExpireAt) {
		return nil
	}

	c.memory.SetUntil(entry.Key, entry, entry.ExpireAt)
	if c.durable == nil {
		return nil
	}
	return c.durable.Put(ctx, entry)
}

// Sweep drops expired entries from both tiers.
func (c *Cache) Sweep(ctx context.Context) error {
	removed := c.memory.Sweep()

	var rows int64
	if c.durable != nil {
		var err error
		if rows, err = c.durable.Sweep(ctx); err != nil {
			return err
		}
	}

	if removed > 0 || rows > 0 {
		log.Debugf("cache sweep removed %d memory and %d durable entries", removed, rows)
	}
	return nil
}

// Sizes reports how many entries each tier holds.
type Sizes struct {
	Memory  int `json:"memory"`
	Durable int `json:"durable"`
}

// Size counts the entries of both tiers.
func (c *Cache) Size(ctx context.Context) Sizes {
	sizes := Sizes{Memory: c.memory.Len()}
	if c.durable != nil {
		if n, err := c.durable.Count(ctx); err == nil {
			sizes.Durable = n
		}
	}
	return sizes
}

// Clear empties both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.memory.Clear()
	if c.durable == nil {
		return nil
	}
	return c.durable.Clear(ctx)
}

// Close stops the sweep goroutine, waits for it and closes the durable tier.
func (c *Cache) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
	}
	if c.durable != nil {
		return c.durable.Close()
	}
	return nil
}
