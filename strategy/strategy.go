// Package strategy maps embed hosts to the extraction logic that finds media URLs on their pages.
package strategy

import (
	"context"

	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/fetch"
)

// Kind tells how a strategy extracts candidates.
type Kind string

const (
	KindPattern    Kind = "pattern"
	KindProcedural Kind = "procedural"
	KindScripted   Kind = "scripted"
	KindGeneric    Kind = "generic"
)

// Fetcher is the network surface available to strategies.
type Fetcher interface {
	Page(ctx context.Context, url string) (string, error)
	Do(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// HostStrategy extracts candidate media URLs for the hosts it matches.
type HostStrategy interface {
	Name() string
	Kind() Kind
	// Matches reports whether host, already lowercased and stripped of "www.", is handled.
	Matches(host string) bool
	Rules() []Rule
	Extract(ctx context.Context, embedURL string, f Fetcher) ([]embed.Candidate, error)
}

// HostType is the label reported in results for URLs handled by s.
func HostType(s HostStrategy) embed.HostType {
	if s.Kind() == KindGeneric {
		return embed.HostOther
	}
	return embed.HostType(s.Name())
}
