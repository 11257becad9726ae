// Package rescan re-resolves a list of embed URLs with the cache read bypassed,
// keeping cached links fresh.
package rescan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/resolver"
	"github.com/vidresolve/vidresolve/targets"
)

// Resolver is the part of resolver.Service a rescan needs.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Response, error)
}

// Store supplies default URLs and records outcomes.
type Store interface {
	URLs() ([]string, error)
	Record(results []embed.Result, at time.Time) error
}

type storedTargets struct{}

func (storedTargets) URLs() ([]string, error) {
	return targets.URLs()
}

func (storedTargets) Record(results []embed.Result, at time.Time) error {
	return targets.Record(results, at)
}

// Targets is the Store backed by the targets package.
var Targets Store = storedTargets{}

// Outcome is the per-URL line of a rescan report.
type Outcome struct {
	URL       string         `json:"url"`
	OK        bool           `json:"ok"`
	HostType  embed.HostType `json:"hostType"`
	DirectURL string         `json:"directUrl,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Report is the outcome of one run.
type Report struct {
	OK      bool      `json:"ok"`
	Ran     int       `json:"ran"`
	RunID   string    `json:"runId"`
	Results []Outcome `json:"results"`
}

// Runner executes rescans. Runs are serialized.
type Runner struct {
	resolver Resolver
	store    Store
	now      func() time.Time
	mu       sync.Mutex
}

// NewRunner creates a Runner. A nil store means no defaults and no recording.
func NewRunner(r Resolver, store Store) *Runner {
	return &Runner{resolver: r, store: store, now: time.Now}
}

// Run resolves urls, or the stored targets when urls is empty.
func (r *Runner) Run(ctx context.Context, urls []string) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{OK: true, RunID: uuid.NewString(), Results: []Outcome{}}
	entry := log.WithFields(log.Fields{"run": report.RunID})

	stored := len(urls) == 0
	if stored && r.store != nil {
		var err error
		if urls, err = r.store.URLs(); err != nil {
			return nil, err
		}
	}
	if len(urls) == 0 {
		entry.Info("rescan skipped, nothing to resolve")
		return report, nil
	}

	resp, err := r.resolver.Resolve(ctx, resolver.Request{URLs: urls, Bypass: true})
	if err != nil {
		return nil, err
	}

	report.Ran = len(resp.Results)
	for _, res := range resp.Results {
		report.Results = append(report.Results, Outcome{
			URL:       res.EmbedURL,
			OK:        res.Success,
			HostType:  res.HostType,
			DirectURL: res.DirectURL,
			Error:     res.Error,
		})
	}

	if r.store != nil {
		if err := r.store.Record(resp.Results, r.now()); err != nil {
			entry.WithError(err).Warn("recording rescan outcomes failed")
		}
	}

	entry.WithFields(log.Fields{
		"ran":        report.Ran,
		"successful": resp.Stats.Successful,
		"stored":     stored,
	}).Info("rescan finished")
	return report, nil
}

// Every runs the stored targets each interval until ctx is done.
func (r *Runner) Every(ctx context.Context, interval time.Duration) {
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
			if _, err := r.Run(ctx, nil); err != nil {
				log.WithFields(log.Fields{"interval": interval}).WithError(err).Warn("scheduled rescan failed")
			}
		}
	}
}
