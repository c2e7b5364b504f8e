package luascript

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/script"
)

// Script is one Lua file. It is read at discovery time; Run compiles and
// executes the source in a fresh interpreter.
type Script struct {
	name   string
	path   string
	source string
}

// Name implements script.Script.
func (s *Script) Name() string { return s.name }

// Origin implements script.Originator.
func (s *Script) Origin() string { return s.path }

// Run executes the chunk with these globals:
//
//	args         positional arguments, a 1-based table of strings
//	script_name  the name the script was dispatched under
//	log(msg)     writes msg to the devscripts log
//
// The chunk fails by raising a Lua error or by returning false, optionally
// followed by a message.
func (s *Script) Run(ctx context.Context, args []string) error {
	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	argTable := L.CreateTable(len(args), 0)
	for _, a := range args {
		argTable.Append(lua.LString(a))
	}
	L.SetGlobal("args", argTable)
	L.SetGlobal("script_name", lua.LString(s.name))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		log.Info(log.CatScript, L.CheckString(1), "script", s.name)
		return 0
	}))

	fn, err := L.LoadString(s.source)
	if err != nil {
		return script.WithStack(fmt.Errorf("compile %s: %w", s.path, err))
	}
	L.Push(fn)
	if err := L.PCall(0, 2, nil); err != nil {
		return script.WithStack(fmt.Errorf("%s: %w", s.path, describe(err)))
	}

	ok, msg := L.Get(-2), L.Get(-1)
	L.Pop(2)
	if ok == lua.LFalse {
		if msg == lua.LNil {
			return script.Errorf("%s: script returned false", s.path)
		}
		return script.Errorf("%s: %s", s.path, msg.String())
	}
	return nil
}

// describe keeps only the Lua error value, dropping the interpreter's own
// traceback.
func describe(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(apiErr.Object.String())
	}
	return err
}

func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	openLib(lua.BaseLibName, lua.OpenBase)
	openLib(lua.TabLibName, lua.OpenTable)
	openLib(lua.StringLibName, lua.OpenString)
	openLib(lua.MathLibName, lua.OpenMath)
	openLib(lua.OsLibName, lua.OpenOs)
	openLib(lua.IoLibName, lua.OpenIo)
	return L
}
