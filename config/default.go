package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/key"
	"github.com/vidresolve/vidresolve/style"
)

// Field is a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field with its current value for terminal display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable bound to this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON includes the current value next to the default.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Env         string `json:"env"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
		Env:         f.Env(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds every registered configuration field.
var Default = make(map[string]Field)

// EnvExposed holds keys bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ServerHost, "", "Host interface the HTTP server listens on.\nEmpty means all interfaces")
	register(key.ServerPort, 8787, "Port the HTTP server listens on")

	register(key.ResolverPerLinkTimeoutMs, 3000, "Default per-link resolution timeout in milliseconds")
	register(key.ResolverMaxTimeoutMs, 10000, "Upper bound applied to caller supplied per-link timeouts")
	register(key.ResolverConcurrency, 5, "Maximum number of embed URLs resolved at once")
	register(key.ResolverSupportedOnly, true, "Only resolve hosts with a registered strategy.\nDisable to let the generic strategy try every host")
	register(key.ResolverProbe, true, "Probe candidates and fall back to the stream proxy when the origin refuses direct access")
	register(key.ResolverUserAgent, "", "User-Agent for outbound requests.\nEmpty means a recent desktop Chrome")

	register(key.FetchAttempts, 2, "Attempts per embed page fetch")
	register(key.FetchMaxRedirects, 3, "Redirects followed when fetching an embed page")
	register(key.FetchTLSFingerprint, false, "Use a browser TLS fingerprint for https page fetches")
	register(key.FetchPageTTLSeconds, 21600, "Lifetime of fetched page bodies in the in-memory page cache")

	register(key.CacheTTLSeconds, 21600, "Lifetime of resolved batches in seconds")
	register(key.CacheDurable, true, "Persist resolved batches in the sqlite cache")
	register(key.CacheSweepIntervalSeconds, 300, "Interval between cache sweeps in seconds")

	register(key.ProxyBaseURL, "", "Prefix for proxied links, e.g. https://resolver.example.com.\nEmpty produces relative /stream links")
	register(key.ProxyMaxRedirects, 5, "Redirects followed by the stream proxy")

	register(key.RescanSecret, "", "Shared secret expected in the x-cron-secret header.\nFalls back to the system keyring when empty")
	register(key.RescanIntervalMinutes, 0, "Run a rescan of stored targets every N minutes while serving.\n0 disables the in-process trigger")

	register(key.StrategiesScripts, true, "Load Lua strategies from the strategies directory")

	register(key.LogsWrite, true, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.LogsStderr, false, "Mirror logs to stderr")
	register(key.LogsMaxSizeMB, 10, "Size in megabytes at which the log file is rotated")
	register(key.LogsMaxBackups, 3, "Rotated log files to keep")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, plain, nerd (nerd-font required)")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(style.Purple),
	"blue":     style.Fg(style.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(style.Green)(b)
			}
			return style.Fg(style.Red)(b)
		case string:
			return style.Fg(style.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
