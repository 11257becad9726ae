// Package targets persists the embed URLs that scheduled rescans keep warm.
package targets

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/where"
)

var (
	mu     sync.Mutex
	cacher = gache.New[map[string]*Target](
		&gache.Options{
			Path:       where.Targets(),
			FileSystem: &filesystem.GacheFs{},
		},
	)
)

// Target is a stored embed URL with the outcome of its latest rescan.
type Target struct {
	URL       string         `json:"url"`
	AddedAt   time.Time      `json:"added_at"`
	LastRunAt time.Time      `json:"last_run_at,omitempty"`
	LastOK    bool           `json:"last_ok"`
	HostType  embed.HostType `json:"host_type,omitempty"`
	DirectURL string         `json:"direct_url,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	// Failures counts consecutive failed rescans.
	Failures int `json:"failures"`
}

func (t *Target) String() string {
	switch {
	case t.LastRunAt.IsZero():
		return t.URL + " (never run)"
	case t.LastOK:
		return t.URL + " -> " + t.DirectURL
	default:
		return t.URL + " ! " + t.LastError
	}
}

func load() (map[string]*Target, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Target), nil
	}
	return cached, nil
}

// List returns every stored target, oldest first.
func List() ([]*Target, error) {
	mu.Lock()
	defer mu.Unlock()

	saved, err := load()
	if err != nil {
		return nil, err
	}

	list := make([]*Target, 0, len(saved))
	for _, t := range saved {
		list = append(list, t)
	}
	slices.SortFunc(list, func(a, b *Target) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
	return list, nil
}

// URLs returns the stored embed URLs in List order.
func URLs() ([]string, error) {
	list, err := List()
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(list))
	for i, t := range list {
		urls[i] = t.URL
	}
	return urls, nil
}

// Add stores urls that are not stored yet and returns how many were new.
// Blank entries are ignored.
func Add(urls ...string) (int, error) {
	mu.Lock()
	defer mu.Unlock()

	saved, err := load()
	if err != nil {
		return 0, err
	}

	var added int
	now := time.Now()
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := saved[u]; ok {
			continue
		}
		saved[u] = &Target{URL: u, AddedAt: now}
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, cacher.Set(saved)
}

// Remove deletes urls and returns how many were stored.
func Remove(urls ...string) (int, error) {
	mu.Lock()
	defer mu.Unlock()

	saved, err := load()
	if err != nil {
		return 0, err
	}

	var removed int
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if _, ok := saved[u]; ok {
			delete(saved, u)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, cacher.Set(saved)
}

// Record stores the outcome of a rescan. Results for URLs that are not stored are ignored.
func Record(results []embed.Result, at time.Time) error {
	mu.Lock()
	defer mu.Unlock()

	saved, err := load()
	if err != nil {
		return err
	}

	var touched bool
	for _, r := range results {
		t, ok := saved[r.EmbedURL]
		if !ok {
			continue
		}
		touched = true

		t.LastRunAt = at
		t.LastOK = r.Success
		t.HostType = r.HostType
		t.DirectURL = r.DirectURL
		t.LastError = r.Error
		if r.Success {
			t.Failures = 0
		} else {
			t.Failures++
		}
	}

	if !touched {
		return nil
	}
	return cacher.Set(saved)
}

// Clear removes every stored target.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()
	return cacher.Set(make(map[string]*Target))
}
