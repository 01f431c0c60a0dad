package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scoped VM is found.
const GlobalScope = "__global__"

// Manager owns one sandboxed LState per scope and exposes hook dispatch.
// A scope is typically an AI behavior ID.
//
// Manager is safe for concurrent CallHook; calls into the same VM are serialized.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	src       dice.Source
	logger    *zap.Logger
}

// NewManager creates a Manager whose VMs draw randomness from src.
//
// Precondition: src and logger must be non-nil; instLimit >= 0 (0 = DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(src dice.Source, logger *zap.Logger, instLimit int) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		src:       src,
		logger:    logger,
	}
}

// LoadScope creates a sandboxed VM for scope, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: The scope VM is registered, replacing any previous one; returns error on Lua load failure.
func (m *Manager) LoadScope(scope, scriptDir string) error {
	return m.loadInto(scope, scriptDir)
}

// LoadGlobal loads scriptDir into the GlobalScope VM.
func (m *Manager) LoadGlobal(scriptDir string) error {
	return m.loadInto(GlobalScope, scriptDir)
}

// LoadString loads a single chunk into scope. Used for inline scripts and tests.
func (m *Manager) LoadString(scope, src string) error {
	L, cancel := NewSandboxedState(m.instLimit)
	defer cancel()
	m.RegisterModules(L)
	if err := L.DoString(src); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading chunk for %q: %w", scope, err)
	}
	m.install(scope, L)
	return nil
}

func (m *Manager) loadInto(key, scriptDir string) error {
	L, cancel := NewSandboxedState(m.instLimit)
	defer cancel()
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	m.logger.Debug("scripting: scope loaded",
		zap.String("scope", key),
		zap.Int("files", len(luaFiles)),
	)
	m.install(key, L)
	return nil
}

func (m *Manager) install(key string, L *lua.LState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.states[key]; ok {
		old.Close()
	}
	m.states[key] = L
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, L := range m.states {
		L.Close()
		delete(m.states, k)
	}
}

// CallHook calls the named Lua global function in scope's VM. If the scope has
// no VM, the GlobalScope VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget or a cancelled ctx, are logged at Warn level
// and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(ctx context.Context, scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[scope]
	if !ok {
		L = m.states[GlobalScope]
	}
	if L == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	callCtx, cancel := newCountingContext(ctx, effectiveLimit(m.instLimit))
	defer cancel()
	L.SetContext(callCtx)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}
