// Package constant defines immutable application-level identifiers and defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	App = "vidresolve"

	// Version is the current application semantic version string.
	Version = "0.4.0"

	// UserAgent is the default browser User-Agent sent to embed hosts.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// ExtractorVersion tags cache entries with the generation of built-in strategies that produced them.
	ExtractorVersion = "sibnet_sendvid_full_scripts_v2"

	// SchemaVersion invalidates cache keys whenever the cached result layout changes.
	SchemaVersion = "results/v3+" + ExtractorVersion
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
