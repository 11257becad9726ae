package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/vidresolve/vidresolve/embed"
)

// firstSubmatch returns group 1 of the first pattern matching s.
func firstSubmatch(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return segments[len(segments)-1]
}

// absoluteOn turns scheme-relative and root-relative paths into URLs on base.
func absoluteOn(base, u string) string {
	switch {
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/"):
		return base + u
	default:
		return u
	}
}

// scanPages fetches each page in turn and returns the rule matches of the first page that has any.
// The error is NoPatternMatch when some page loaded, otherwise the last fetch error.
func scanPages(ctx context.Context, name string, f Fetcher, pages []string, rules []Rule) (string, []string, error) {
	var (
		loaded  bool
		lastErr error
	)

	for _, p := range pages {
		body, err := f.Page(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, err
			}
			lastErr = err
			continue
		}
		loaded = true

		if found := Apply(rules, body); len(found) > 0 {
			return p, found, nil
		}
	}

	if loaded || lastErr == nil {
		return "", nil, fmt.Errorf("%s: %w", name, embed.ErrNoPatternMatch)
	}
	return "", nil, lastErr
}

var errNoVideoID = errors.New("no video id in url")

type procedural struct {
	name    string
	domains []string
	rules   []Rule
}

func (p *procedural) Name() string  { return p.name }
func (p *procedural) Kind() Kind    { return KindProcedural }
func (p *procedural) Rules() []Rule { return p.rules }

// Domains lists the hosts served, subdomains included.
func (p *procedural) Domains() []string { return p.domains }

func (p *procedural) Matches(host string) bool {
	for _, d := range p.domains {
		if embed.HostMatches(host, d) {
			return true
		}
	}
	return false
}
