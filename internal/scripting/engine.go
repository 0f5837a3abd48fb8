package scripting

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

//go:embed lua/life.lua
var defaultRule string

// Engine wraps a single gopher-lua VM holding the cell rule.
// Single-goroutine access only: the life system is its only caller.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine loads the built-in rule, then every .lua file in scriptsDir.
// A missing scriptsDir is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := vm.DoString(defaultRule); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load built-in rule: %w", err)
	}
	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	if e.vm.GetGlobal("next_state") == lua.LNil {
		vm.Close()
		return nil, fmt.Errorf("scripts do not define next_state")
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// NextState asks the script whether a cell is alive next generation. A
// script error keeps the cell as it is.
func (e *Engine) NextState(alive bool, neighbours int) bool {
	fn := e.vm.GetGlobal("next_state")
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LBool(alive), lua.LNumber(neighbours)); err != nil {
		e.log.Error("lua next_state failed", zap.Error(err))
		return alive
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(ret)
}

func (e *Engine) Close() {
	e.vm.Close()
}
