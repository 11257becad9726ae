package strategy

import (
	"context"
	"regexp"

	"github.com/samber/lo"
	"github.com/vidresolve/vidresolve/embed"
)

const sendvidBase = "https://sendvid.com"

var sendvidIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sendvid\.com/embed/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`sendvid\.com/([a-zA-Z0-9]+)$`),
}

// Sendvid reads the video page, falling back to the embed page.
type Sendvid struct {
	procedural
}

func NewSendvid() *Sendvid {
	return &Sendvid{procedural{
		name:    "sendvid",
		domains: []string{"sendvid.com", "sandvid.com", "sandvide.com"},
		rules: []Rule{
			Regex(`(?s)<video[^>]*>.*?<source[^>]*src=['"]([^'"]*\.mp4[^'"]*)['"]`),
			Regex(`(?:src|file|url)['"]?\s*[:=]\s*['"]([^'"]*videos[^'"]*\.mp4[^'"]*)['"]`),
			Regex(`(https?://videos[^'"]*\.sendvid\.com[^'"]*\.mp4[^'"]*)`),
			Regex(`data-src=['"]([^'"]*\.mp4[^'"]*)['"]`),
			Regex(`videoUrl\s*[:=]\s*['"]([^'"]*\.mp4[^'"]*)['"]`),
			Regex(`['"](https?://[^'"]*/[a-f0-9]{2}/[a-f0-9]{2}/[^'"]*\.mp4[^'"]*)['"]`),
			Regex(`['"](https?://[^'"]*sendvid[^'"]*\.mp4[^'"]*|https?://[^'"]*\.mp4[^'"]*sendvid[^'"]*)['"]`),
			Query("video source[src]", "src"),
		},
	}}
}

// SendvidID extracts the alphanumeric video id from a sendvid URL.
func SendvidID(embedURL string) string {
	if id := firstSubmatch(sendvidIDPatterns, embedURL); id != "" {
		return id
	}
	return lastPathSegment(embedURL)
}

func (s *Sendvid) Extract(ctx context.Context, embedURL string, f Fetcher) ([]embed.Candidate, error) {
	id := SendvidID(embedURL)
	if id == "" {
		return nil, embed.Errorf(embed.NoPatternMatch, "sendvid: %w", errNoVideoID)
	}

	pages := []string{
		sendvidBase + "/" + id,
		sendvidBase + "/embed/" + id,
	}
	_, found, err := scanPages(ctx, s.name, f, pages, s.rules)
	if err != nil {
		return nil, err
	}

	return embed.NewCandidates(lo.Map(found, func(u string, _ int) string {
		return absoluteOn(sendvidBase, u)
	})...), nil
}
