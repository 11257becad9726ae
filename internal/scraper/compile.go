// Package scraper loads strategy scripts into Lua states and keeps their compiled bytecode.
package scraper

import (
	"fmt"
	"sync"
	"time"

	"github.com/vidresolve/vidresolve/filesystem"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type compiled struct {
	modTime time.Time
	proto   *lua.FunctionProto
}

var bytecodeCache sync.Map

// Compile parses scriptPath into a reusable prototype.
// Prototypes are cached until the file's modification time changes.
func Compile(scriptPath string) (*lua.FunctionProto, error) {
	info, err := filesystem.API().Stat(scriptPath)
	if err != nil {
		return nil, err
	}

	if cached, ok := bytecodeCache.Load(scriptPath); ok {
		if c := cached.(compiled); c.modTime.Equal(info.ModTime()) {
			return c.proto, nil
		}
	}

	file, err := filesystem.API().Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	chunk, err := parse.Parse(file, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", scriptPath, err)
	}

	proto, err := lua.Compile(chunk, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", scriptPath, err)
	}

	bytecodeCache.Store(scriptPath, compiled{modTime: info.ModTime(), proto: proto})
	return proto, nil
}

// PreCompileAndLoad runs the script at scriptPath inside L, compiling it only when needed.
func PreCompileAndLoad(L *lua.LState, scriptPath string) error {
	proto, err := Compile(scriptPath)
	if err != nil {
		return err
	}

	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}

// Forget drops the cached bytecode of scriptPath.
func Forget(scriptPath string) {
	bytecodeCache.Delete(scriptPath)
}
