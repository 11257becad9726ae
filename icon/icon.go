// Package icon renders status symbols in the variant selected by configuration.
package icon

import (
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/key"
)

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota + 1
	Fail
	Progress
	Hit
	Miss
	Proxy
	Script
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

type iconDef struct {
	emoji string
	nerd  string
	plain string
}

func (d iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}

var icons = map[Icon]iconDef{
	Success:  {emoji: "✅", nerd: "", plain: "ok"},
	Fail:     {emoji: "❌", nerd: "", plain: "fail"},
	Progress: {emoji: "⏳", nerd: "", plain: "..."},
	Hit:      {emoji: "📦", nerd: "", plain: "hit"},
	Miss:     {emoji: "🔎", nerd: "", plain: "miss"},
	Proxy:    {emoji: "🔀", nerd: "", plain: "proxy"},
	Script:   {emoji: "🌙", nerd: "", plain: "lua"},
}

// Get returns the symbol for i, or an empty string for an unknown variant.
func Get(i Icon) string {
	return icons[i].get()
}
