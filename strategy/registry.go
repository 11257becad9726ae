package strategy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Registry resolves hosts to strategies. Lookups do no I/O.
type Registry struct {
	strategies []HostStrategy
	generic    HostStrategy
}

// NewRegistry registers strategies in order of precedence. Generic is the fallback.
func NewRegistry(strategies ...HostStrategy) *Registry {
	return &Registry{
		strategies: strategies,
		generic:    Generic(),
	}
}

// Builtins returns the built-in strategies in registration order.
func Builtins() []HostStrategy {
	return []HostStrategy{
		NewSibnet(),
		NewSendvid(),
		vidmoly(),
		smoothpre(),
		doodstream(),
		streamtape(),
	}
}

// Default is a registry of the built-in strategies followed by extra ones, typically scripts.
func Default(extra ...HostStrategy) *Registry {
	return NewRegistry(append(Builtins(), extra...)...)
}

// StrategyFor returns the first strategy matching host, or the generic one.
func (r *Registry) StrategyFor(host string) HostStrategy {
	if s, ok := lo.Find(r.strategies, func(s HostStrategy) bool {
		return s.Matches(host)
	}); ok {
		return s
	}
	return r.generic
}

// RulesFor returns the ordered rules of the strategy handling host.
func (r *Registry) RulesFor(host string) []Rule {
	return r.StrategyFor(host).Rules()
}

// Supported reports whether a dedicated strategy handles host.
func (r *Registry) Supported(host string) bool {
	return r.StrategyFor(host).Kind() != KindGeneric
}

// All lists every strategy, the generic fallback last.
func (r *Registry) All() []HostStrategy {
	return append(append([]HostStrategy{}, r.strategies...), r.generic)
}

// Names lists the names of All.
func (r *Registry) Names() []string {
	return lo.Map(r.All(), func(s HostStrategy, _ int) string {
		return s.Name()
	})
}

// DomainsOf lists the domains s declares, nil for the generic fallback.
func DomainsOf(s HostStrategy) []string {
	if d, ok := s.(interface{ Domains() []string }); ok {
		return d.Domains()
	}
	return nil
}

// Find ranks strategies whose name or domains fuzzily match q, closest first.
func (r *Registry) Find(q string) []HostStrategy {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}

	best := make(map[string]int)
	for _, s := range r.All() {
		targets := append([]string{s.Name()}, DomainsOf(s)...)
		for _, m := range fuzzy.RankFindNormalizedFold(q, targets) {
			if d, ok := best[s.Name()]; !ok || m.Distance < d {
				best[s.Name()] = m.Distance
			}
		}
	}

	found := lo.Filter(r.All(), func(s HostStrategy, _ int) bool {
		_, ok := best[s.Name()]
		return ok
	})
	slices.SortStableFunc(found, func(a, b HostStrategy) int {
		return cmp.Compare(best[a.Name()], best[b.Name()])
	})
	return found
}
