// Package embed defines the resolution data model: embed URLs, host identities, candidates and results.
package embed

import (
	"net/url"
	"path"
	"strings"
)

// HostType labels the strategy family that handled an embed URL.
type HostType string

// HostOther is reported for hosts without a dedicated strategy.
const HostOther HostType = "other"

// Format is the container family of a media URL.
type Format string

const (
	FormatFile Format = "file"
	FormatHLS  Format = "hls"
	FormatDash Format = "dash"
)

// HostOf returns the host identity of rawURL: lowercased hostname without a leading "www.".
// The empty string is returned when rawURL does not parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IsAbsoluteHTTP reports whether rawURL is an absolute http(s) URL with a host.
func IsAbsoluteHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HostMatches reports whether host equals domain or is one of its subdomains.
func HostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Origin returns "scheme://host/" for rawURL, used as the Referer sent to embed hosts.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// FormatOf guesses the container family from the URL path.
func FormatOf(rawURL string) Format {
	p := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		p = strings.ToLower(u.Path)
	}

	switch {
	case strings.HasSuffix(p, ".m3u8"), strings.Contains(p, ".m3u8"):
		return FormatHLS
	case path.Ext(p) == ".mpd":
		return FormatDash
	default:
		return FormatFile
	}
}

// Candidate is a URL extracted from an embed page that might be a direct media URL.
type Candidate struct {
	URL            string `json:"url"`
	Format         Format `json:"format"`
	HasExpiryToken bool   `json:"hasExpiryToken"`
	// Status is the HTTP status observed when the candidate was captured. 3xx marks a redirect origin.
	Status int    `json:"status,omitempty"`
	MIME   string `json:"mime,omitempty"`
}

// IsRedirectOrigin reports whether the candidate was captured from a 3xx response.
func (c Candidate) IsRedirectOrigin() bool {
	return c.Status >= 300 && c.Status < 400
}

// NewCandidates wraps raw URLs into candidates with no capture metadata.
func NewCandidates(urls ...string) []Candidate {
	candidates := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		candidates = append(candidates, Candidate{URL: u})
	}
	return candidates
}
