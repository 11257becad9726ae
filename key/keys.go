// Package key defines the canonical set of configuration identifiers.
package key

// HTTP listener.
const (
	ServerHost = "server.host"
	ServerPort = "server.port"
)

// Resolution engine.
const (
	ResolverPerLinkTimeoutMs = "resolver.per_link_timeout_ms"
	ResolverMaxTimeoutMs     = "resolver.max_timeout_ms"
	ResolverConcurrency      = "resolver.concurrency"
	ResolverSupportedOnly    = "resolver.supported_only"
	ResolverProbe            = "resolver.probe"
	ResolverUserAgent        = "resolver.user_agent"
)

// Page fetcher.
const (
	FetchAttempts       = "fetch.attempts"
	FetchMaxRedirects   = "fetch.max_redirects"
	FetchTLSFingerprint = "fetch.tls_fingerprint"
	FetchPageTTLSeconds = "fetch.page_ttl_seconds"
)

// Result cache.
const (
	CacheTTLSeconds           = "cache.ttl_seconds"
	CacheDurable              = "cache.durable"
	CacheSweepIntervalSeconds = "cache.sweep_interval_seconds"
)

// Streaming proxy.
const (
	ProxyBaseURL      = "proxy.base_url"
	ProxyMaxRedirects = "proxy.max_redirects"
)

// Rescan trigger.
const (
	RescanSecret          = "rescan.secret"
	RescanIntervalMinutes = "rescan.interval_minutes"
)

// Scripted strategies.
const (
	StrategiesScripts = "strategies.scripts"
)

// Logging.
const (
	LogsWrite      = "logs.write"
	LogsLevel      = "logs.level"
	LogsJson       = "logs.json"
	LogsStderr     = "logs.stderr"
	LogsMaxSizeMB  = "logs.max_size_mb"
	LogsMaxBackups = "logs.max_backups"
)

// CLI.
const (
	CliColored   = "cli.colored"
	IconsVariant = "icons.variant"
)
