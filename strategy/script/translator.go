package script

import (
	"fmt"

	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/strategy"
	lua "github.com/yuin/gopher-lua"
)

func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return val.String()
	}
	return ""
}

// stringsFromTable collects the string values of an array-like table.
func stringsFromTable(table *lua.LTable) []string {
	var list []string
	table.ForEach(func(_, v lua.LValue) {
		if v.Type() == lua.LTString && v.String() != "" {
			list = append(list, v.String())
		}
	})
	return list
}

func candidatesFromTable(table *lua.LTable) []embed.Candidate {
	var candidates []embed.Candidate
	table.ForEach(func(_, v lua.LValue) {
		switch v.Type() {
		case lua.LTString:
			candidates = append(candidates, embed.Candidate{URL: strategy.CleanURL(v.String())})
		case lua.LTTable:
			tbl := v.(*lua.LTable)
			u := getString(tbl, "url")
			if u == "" {
				return
			}
			c := embed.Candidate{URL: strategy.CleanURL(u), Format: embed.Format(getString(tbl, "format"))}
			if status, ok := tbl.RawGetString("status").(lua.LNumber); ok {
				c.Status = int(status)
			}
			c.MIME = getString(tbl, "mime")
			candidates = append(candidates, c)
		}
	})
	return candidates
}

func rulesFromTable(table *lua.LTable) ([]strategy.Rule, error) {
	var (
		rules []strategy.Rule
		err   error
	)
	table.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		tbl, ok := v.(*lua.LTable)
		if !ok {
			err = fmt.Errorf("rule must be a table, got %s", v.Type())
			return
		}

		pattern := getString(tbl, "pattern")
		if pattern == "" {
			err = fmt.Errorf("rule must have a pattern")
			return
		}

		switch strategy.RuleKind(getString(tbl, "kind")) {
		case strategy.RuleQuery:
			rules = append(rules, strategy.Query(pattern, getString(tbl, "attr")))
		case strategy.RuleRegex, "":
			var r strategy.Rule
			if r, err = strategy.CompileRegex(pattern); err == nil {
				rules = append(rules, r)
			}
		default:
			err = fmt.Errorf("unknown rule kind %q", getString(tbl, "kind"))
		}
	})
	return rules, err
}
