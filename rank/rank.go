// Package rank filters extracted candidates down to playable media URLs and orders them by preference.
package rank

import (
	"cmp"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/vidresolve/vidresolve/embed"
)

var blockedDomains = []string{
	"yandex.ru",
	"yastatic.net",
	"adriver.ru",
	"betweendigital.com",
	"googlesyndication.com",
	"googletagmanager.com",
}

var mediaExtensions = []string{".mp4", ".m4v", ".webm", ".ogv", ".mov", ".m3u8", ".ts"}

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[?&#])(?:e|exp|expires|expiry|validto|ttl)=\d{9,13}(?:$|[&#])`),
	regexp.MustCompile(`(?i)(?:^|[?&#])token[^=]*=[A-Za-z0-9_-]{8,}(?:$|[&#])`),
	regexp.MustCompile(`(?i)(?:^|[?&#])(?:auth|signature|key)=[A-Za-z0-9_-]{8,}(?:$|[&#])`),
	regexp.MustCompile(`(?i)(?:^|[?&#])st=[A-Za-z0-9_-]+&e=\d{9,13}(?:$|[&#])`),
	regexp.MustCompile(`(?i)(?:^|[?&#])(?:X-Amz-Expires|X-Amz-Signature)=`),
}

var (
	expiryParam    = regexp.MustCompile(`(?i)(?:^|[?&#])(?:e|exp|expires|expiry|validto|ttl|token_expires)=(\d{9,13})(?:$|[&#])`)
	resolutionHint = regexp.MustCompile(`(\d{3,4})p`)
)

const (
	defaultQuality = 720
	amzDateLayout  = "20060102T150405Z"
)

// HasExpiryToken reports whether u carries an expiry or signature parameter.
func HasExpiryToken(u string) bool {
	return lo.SomeBy(tokenPatterns, func(re *regexp.Regexp) bool {
		return re.MatchString(u)
	})
}

// ExpiryOf returns the expiry timestamp embedded in u.
// Thirteen digit values are milliseconds, shorter ones seconds.
// Presigned S3 URLs expire X-Amz-Expires seconds after X-Amz-Date.
func ExpiryOf(u string) mo.Option[time.Time] {
	if m := expiryParam.FindStringSubmatch(u); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return mo.None[time.Time]()
		}
		if len(m[1]) == 13 {
			return mo.Some(time.UnixMilli(n))
		}
		return mo.Some(time.Unix(n, 0))
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return mo.None[time.Time]()
	}
	q := parsed.Query()
	date, expires := q.Get("X-Amz-Date"), q.Get("X-Amz-Expires")
	if date == "" || expires == "" {
		return mo.None[time.Time]()
	}
	signed, err := time.Parse(amzDateLayout, date)
	if err != nil {
		return mo.None[time.Time]()
	}
	seconds, err := strconv.Atoi(expires)
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(signed.Add(time.Duration(seconds) * time.Second))
}

// IsBlocked reports whether u points at an ad or tracking host.
func IsBlocked(u string) bool {
	host := embed.HostOf(u)
	return lo.SomeBy(blockedDomains, func(domain string) bool {
		return embed.HostMatches(host, domain)
	})
}

func isPlayable(c embed.Candidate) bool {
	if c.IsRedirectOrigin() {
		return true
	}

	lower := strings.ToLower(c.URL)
	if strings.Contains(lower, "m3u8") {
		return true
	}

	p := mediaPath(c.URL)
	if lo.Contains(mediaExtensions, path.Ext(p)) {
		return true
	}

	mime := strings.ToLower(c.MIME)
	switch {
	case strings.HasPrefix(mime, "video/"), strings.Contains(mime, "mpegurl"):
		return true
	case strings.Contains(mime, "octet-stream"):
		return strings.Contains(p, "m3u8") || strings.Contains(p, "/hls/")
	}
	return false
}

// mediaPath is the lowercased path of u, or all of u when it does not parse.
func mediaPath(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		return strings.ToLower(parsed.Path)
	}
	return strings.ToLower(u)
}

func formatRank(u string) int {
	p := mediaPath(u)
	switch path.Ext(p) {
	case ".mp4":
		return 0
	case ".webm":
		return 1
	case ".mov":
		return 2
	case ".m3u8":
		return 3
	case ".ts":
		return 4
	}
	if strings.Contains(p, ".m3u8") {
		return 3
	}
	return 9
}

// merge folds candidates sharing a URL into one, keeping the strongest capture metadata
// so the result does not depend on the order duplicates were found in.
func merge(candidates []embed.Candidate) []embed.Candidate {
	index := make(map[string]int, len(candidates))
	out := make([]embed.Candidate, 0, len(candidates))

	for _, c := range candidates {
		i, seen := index[c.URL]
		if !seen {
			index[c.URL] = len(out)
			out = append(out, c)
			continue
		}

		kept := &out[i]
		if betterStatus(c.Status, kept.Status) {
			kept.Status = c.Status
		}
		if kept.MIME == "" || (c.MIME != "" && c.MIME < kept.MIME) {
			kept.MIME = cmp.Or(c.MIME, kept.MIME)
		}
		if kept.Format == "" || (c.Format != "" && c.Format < kept.Format) {
			kept.Format = cmp.Or(c.Format, kept.Format)
		}
	}
	return out
}

// betterStatus prefers a redirect origin, then any observed status, then the lower one.
func betterStatus(a, b int) bool {
	ra, rb := a >= 300 && a < 400, b >= 300 && b < 400
	switch {
	case ra != rb:
		return ra
	case (a == 0) != (b == 0):
		return a != 0
	default:
		return a < b
	}
}

func quality(u string) int {
	if m := resolutionHint.FindStringSubmatch(u); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			return q
		}
	}
	return defaultQuality
}

func absolutize(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	abs := ref.String()
	return abs, embed.IsAbsoluteHTTP(abs)
}

// FilterAndRank keeps the playable, unexpired candidates found on pageURL and sorts them best first.
// The order is total so equal input always ranks identically.
func FilterAndRank(pageURL string, candidates []embed.Candidate, now time.Time) ([]embed.Candidate, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	resolved := lo.FilterMap(candidates, func(c embed.Candidate, _ int) (embed.Candidate, bool) {
		abs, ok := absolutize(base, c.URL)
		if !ok {
			return c, false
		}
		c.URL = abs
		return c, true
	})

	kept := lo.Filter(merge(resolved), func(c embed.Candidate, _ int) bool {
		return !IsBlocked(c.URL) && isPlayable(c)
	})

	fresh := lo.Filter(kept, func(c embed.Candidate, _ int) bool {
		exp, ok := ExpiryOf(c.URL).Get()
		return !ok || exp.After(now)
	})

	switch {
	case len(fresh) == 0 && len(kept) > 0:
		return nil, embed.ErrAllExpired
	case len(fresh) == 0:
		return nil, embed.ErrNoPatternMatch
	}

	for i := range fresh {
		fresh[i].HasExpiryToken = HasExpiryToken(fresh[i].URL)
		if fresh[i].Format == "" {
			fresh[i].Format = embed.FormatOf(fresh[i].URL)
		}
	}

	if withToken := lo.Filter(fresh, func(c embed.Candidate, _ int) bool { return c.HasExpiryToken }); len(withToken) > 0 {
		fresh = withToken
	}

	slices.SortFunc(fresh, compare)
	return fresh, nil
}

func compare(a, b embed.Candidate) int {
	return cmp.Or(
		cmp.Compare(flag(!a.IsRedirectOrigin()), flag(!b.IsRedirectOrigin())),
		cmp.Compare(flag(!a.HasExpiryToken), flag(!b.HasExpiryToken)),
		cmp.Compare(formatRank(a.URL), formatRank(b.URL)),
		cmp.Compare(quality(b.URL), quality(a.URL)),
		strings.Compare(a.URL, b.URL),
	)
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
