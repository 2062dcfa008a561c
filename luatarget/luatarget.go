// Package luatarget exposes a Lua state as a hooks.Target, so deferred
// references can name Lua functions that are resolved at invocation time.
// This is the scripted-callback path: hook chains declared in static
// configuration can dispatch into user-supplied Lua without recompiling.
//
//	target := luatarget.New()
//	defer target.Close()
//
//	target.DoString(`
//	    function scrub(doc)
//	        doc.password = nil
//	        return doc
//	    end
//	`)
//
//	svc := hooks.New(hooks.WithTarget("scripts", target))
//	svc.Register("user.scrub", hooks.Deferred("scripts", "scrub", 1))
//
// A Lua callback receives its arguments per the deferred reference's
// arity and returns the next accumulator. Returning a second value of
// true halts the chain; the built-in halt helper does this:
//
//	function check(doc)
//	    if doc.spam then
//	        return halt(doc)
//	    end
//	    return doc
//	end
package luatarget

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/infinityoneframework/hooks"
)

// Target wraps one Lua state. The hooks service serializes Invoke with
// the rest of its traffic, but loading code with DoString/DoFile may race
// with an in-flight fold, so the state is guarded by a mutex anyway.
type Target struct {
	mu    sync.Mutex
	state *lua.LState
}

// New creates a Target with a fresh Lua state and the halt helper
// predefined.
func New() *Target {
	L := lua.NewState()

	// halt(v) makes `return halt(doc)` read naturally in scripts.
	L.SetGlobal("halt", L.NewFunction(func(L *lua.LState) int {
		v := L.Get(1)
		L.Push(v)
		L.Push(lua.LTrue)
		return 2
	}))

	return &Target{state: L}
}

// DoString loads Lua source into the state, typically function
// definitions referenced by deferred members.
func (t *Target) DoString(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.DoString(code)
}

// DoFile loads a Lua file into the state.
func (t *Target) DoFile(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.DoFile(path)
}

// Close releases the Lua state. Invoke after Close fails.
func (t *Target) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != nil {
		t.state.Close()
		t.state = nil
	}
}

// Invoke implements hooks.Target: member is resolved as a global Lua
// function, args are bridged to Lua values, and the returns are mapped
// onto the fold protocol (second return value true means halt).
func (t *Target) Invoke(member string, args []any) (hooks.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil {
		return hooks.Result{}, fmt.Errorf("lua target is closed")
	}

	fn := t.state.GetGlobal(member)
	if fn.Type() != lua.LTFunction {
		return hooks.Result{}, fmt.Errorf("%w: no lua function %q", hooks.ErrUnknownMember, member)
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		largs[i] = toLua(t.state, arg)
	}

	before := t.state.GetTop()
	if err := t.state.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, largs...); err != nil {
		return hooks.Result{}, fmt.Errorf("lua %q: %w", member, err)
	}

	nret := t.state.GetTop() - before
	defer t.state.SetTop(before)

	if nret == 0 {
		return hooks.Continue(nil), nil
	}

	value := toGo(t.state.Get(before + 1))
	if nret >= 2 && lua.LVAsBool(t.state.Get(before+2)) {
		return hooks.Halt(value), nil
	}
	return hooks.Continue(value), nil
}

// toLua bridges a Go value into the Lua state. Unsupported types become
// nil rather than failing the call.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// toGo bridges a Lua value back to Go. Tables with contiguous integer
// keys from 1 become []any, everything else becomes map[string]any.
func toGo(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable) any {
	maxN := t.MaxN()
	if maxN > 0 {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		if count == maxN {
			arr := make([]any, maxN)
			for i := 1; i <= maxN; i++ {
				arr[i-1] = toGo(t.RawGetInt(i))
			}
			return arr
		}
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = toGo(v)
	})
	return m
}
