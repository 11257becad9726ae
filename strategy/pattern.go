package strategy

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/vidresolve/vidresolve/embed"
)

// Pattern is a strategy that fetches the embed page and applies ordered rules to it.
type Pattern struct {
	name    string
	kind    Kind
	domains []string
	rules   []Rule
}

// NewPattern creates a pattern strategy for domains and their subdomains.
func NewPattern(name string, domains []string, rules ...Rule) *Pattern {
	return &Pattern{name: name, kind: KindPattern, domains: domains, rules: rules}
}

func (p *Pattern) Name() string  { return p.name }
func (p *Pattern) Kind() Kind    { return p.kind }
func (p *Pattern) Rules() []Rule { return p.rules }

// Domains lists the registered domains.
func (p *Pattern) Domains() []string { return p.domains }

func (p *Pattern) Matches(host string) bool {
	if p.kind == KindGeneric {
		return true
	}
	return lo.SomeBy(p.domains, func(d string) bool {
		return embed.HostMatches(host, d)
	})
}

func (p *Pattern) Extract(ctx context.Context, embedURL string, f Fetcher) ([]embed.Candidate, error) {
	body, err := f.Page(ctx, embedURL)
	if err != nil {
		return nil, err
	}

	found := Apply(p.rules, body)
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, embed.ErrNoPatternMatch)
	}
	return embed.NewCandidates(found...), nil
}

func vidmoly() *Pattern {
	return NewPattern("vidmoly", []string{"vidmoly.net"},
		Regex(`(?:file|source)\s*[:=]\s*["']([^"']+\.(?:m3u8|mp4)[^"']*token[^"']*)`),
		Regex(`playlist\s*[:=]\s*["']([^"']+\.m3u8[^"']*)`),
		Regex(`src\s*[:=]\s*["']([^"']+\.(?:mp4|m3u8)[^"']*)`),
	)
}

func smoothpre() *Pattern {
	return NewPattern("smoothpre", []string{"smoothpre.com"},
		Regex(`(?:file|source)\s*[:=]\s*["']([^"']+\.(?:mp4|m3u8)[^"']*)`),
		Regex(`video\s*[:=]\s*["']([^"']+\.(?:mp4|m3u8)[^"']*)`),
	)
}

func doodstream() *Pattern {
	return NewPattern("doodstream", []string{"doodstream.com"},
		Regex(`\$\.get\(['"]([^'"]+\.mp4[^'"]*)['"]`),
		Regex(`src\s*[:=]\s*["']([^"']+\.mp4[^"']*)`),
	)
}

func streamtape() *Pattern {
	return NewPattern("streamtape", []string{"streamtape.com"},
		Regex(`(?:document\.getElementById\('norobotlink'\)\.innerHTML\s*=\s*['"][^'"]*|robotlink\s*=\s*['"])([^'"]+\.mp4[^'"]*)`),
		Regex(`src\s*[:=]\s*["']([^"']+\.mp4[^"']*)`),
	)
}

// Generic is the fallback strategy for hosts nothing else matches.
func Generic() *Pattern {
	return &Pattern{
		name: "generic",
		kind: KindGeneric,
		rules: []Rule{
			Regex(`(?:file|source|src|video_url|stream_url)\s*[:=]\s*["']([^"']+\.(?:mp4|m3u8|webm)[^"']*)`),
			Regex(`player\.src\(['"]([^'"]+\.(?:mp4|m3u8)[^'"]*)`),
			Regex(`videojs\(['"][^'"]*['"],\s*\{[^}]*src:\s*['"]([^'"]+\.(?:mp4|m3u8)[^'"]*)`),
			Query("video source[src]", "src"),
			Query("video[src]", "src"),
		},
	}
}
