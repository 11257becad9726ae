// Package script runs host strategies written in Lua.
//
// A strategy script defines two global functions:
//
//	Hosts()              → table of domains the script handles
//	Extract(url, html)   → table of media URLs, or of {url = ..., format = ...} tables
//
// A script can pin the oldest build it supports with a MinVersion = "x.y.z" global.
// Scripts may also define Rules() returning {pattern = ..., kind = "regex"|"query", attr = ...} tables
// that are reported by the registry alongside built-in rules.
package script

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/samber/lo"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/internal/scraper"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/strategy"
	"github.com/vidresolve/vidresolve/util"
	"github.com/vidresolve/vidresolve/version"
	lua "github.com/yuin/gopher-lua"
)

// Strategy is a HostStrategy backed by a Lua state.
// A Lua state is single threaded, so calls are serialized.
type Strategy struct {
	name    string
	path    string
	domains []string
	rules   []strategy.Rule

	mu    sync.Mutex
	state *lua.LState
}

// Load executes the script at path and validates its required functions.
func Load(path string) (*Strategy, error) {
	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state)

	if err := scraper.PreCompileAndLoad(state, path); err != nil {
		state.Close()
		return nil, err
	}

	name := util.FileStem(path)
	for _, fn := range []string{constant.StrategyHostsFn, constant.StrategyExtractFn} {
		if state.GetGlobal(fn).Type() != lua.LTFunction {
			state.Close()
			return nil, fmt.Errorf("function %s is required but not defined in %s", fn, name)
		}
	}

	if v := state.GetGlobal(constant.StrategyMinVersionVar); v.Type() == lua.LTString {
		ok, err := version.Satisfies(v.String())
		if err != nil || !ok {
			state.Close()
			return nil, fmt.Errorf("%s requires %s %s or newer", name, constant.App, v.String())
		}
	}

	s := &Strategy{name: name, path: path, state: state}

	hosts, err := s.call(constant.StrategyHostsFn, lua.LTTable)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.domains = stringsFromTable(hosts.(*lua.LTable))
	if len(s.domains) == 0 {
		state.Close()
		return nil, fmt.Errorf("%s: %s returned no hosts", name, constant.StrategyHostsFn)
	}

	if state.GetGlobal(constant.StrategyRulesFn).Type() == lua.LTFunction {
		rules, err := s.call(constant.StrategyRulesFn, lua.LTTable)
		if err != nil {
			state.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if s.rules, err = rulesFromTable(rules.(*lua.LTable)); err != nil {
			state.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return s, nil
}

// LoadAll loads every script in dir. Broken scripts are logged and skipped.
func LoadAll(dir string) ([]strategy.HostStrategy, error) {
	files, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var loaded []strategy.HostStrategy
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != constant.StrategyExtension {
			continue
		}

		s, err := Load(filepath.Join(dir, f.Name()))
		if err != nil {
			log.Warnf("skipping strategy script %s: %s", f.Name(), err)
			continue
		}
		loaded = append(loaded, s)
	}

	return loaded, nil
}

func (s *Strategy) Name() string           { return s.name }
func (s *Strategy) Kind() strategy.Kind    { return strategy.KindScripted }
func (s *Strategy) Rules() []strategy.Rule { return s.rules }

// Path is the script location.
func (s *Strategy) Path() string { return s.path }

// Domains lists what Hosts returned.
func (s *Strategy) Domains() []string { return s.domains }

func (s *Strategy) Matches(host string) bool {
	return lo.SomeBy(s.domains, func(d string) bool {
		return embed.HostMatches(host, d)
	})
}

// Extract fetches the embed page and hands it to the script.
func (s *Strategy) Extract(ctx context.Context, embedURL string, f strategy.Fetcher) ([]embed.Candidate, error) {
	body, err := f.Page(ctx, embedURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SetContext(ctx)
	defer s.state.RemoveContext()

	val, err := s.callLocked(constant.StrategyExtractFn, lua.LTTable, lua.LString(embedURL), lua.LString(body))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, embed.Errorf(embed.FetchFailure, "%s: %w", s.name, err)
	}

	candidates := candidatesFromTable(val.(*lua.LTable))
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", s.name, embed.ErrNoPatternMatch)
	}
	return candidates, nil
}

// Close releases the Lua state.
func (s *Strategy) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

func (s *Strategy) call(fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callLocked(fn, retType, args...)
}

// callLocked executes a global Lua function in protected mode.
func (s *Strategy) callLocked(fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	luaFn := s.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	err := s.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return nil, err
	}

	retval := s.state.Get(-1)
	s.state.Pop(1)

	if retval.Type() != retType {
		return nil, fmt.Errorf("%s returned %s, expected %s", fn, retval.Type(), retType)
	}
	return retval, nil
}
