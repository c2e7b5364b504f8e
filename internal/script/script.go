// Package script defines the script contract, the discovery collaborator the
// dispatcher depends on, and the registry resolver that turns a discovery set
// into a name lookup table.
//
// Scripts are supplied by the host application. This package never constructs
// host scripts; it only looks them up by name.
package script

import (
	"context"
	"fmt"
	"path"
	"runtime"
)

// Script is a named, invokable unit of administrative work.
type Script interface {
	// Name is the unique identifier the script is dispatched under. It must be
	// stable for the lifetime of the process.
	Name() string
	// Run performs the script's side effects with positional arguments.
	// Success is signaled by a nil error; Run may also panic. Errors built with
	// Errorf or WithStack report the script's own frames on failure; other
	// errors are traced from the point where the script was invoked.
	Run(ctx context.Context, args []string) error
}

// Originator is implemented by scripts that can say where they came from,
// such as the file a script was loaded from. It sharpens duplicate reports
// when several scripts share one Go type.
type Originator interface {
	Origin() string
}

// Identity describes a script implementation for error reports: its Go type,
// plus its origin when it has one.
func Identity(s Script) string {
	id := fmt.Sprintf("%T", s)
	if o, ok := s.(Originator); ok {
		if origin := o.Origin(); origin != "" {
			id += " (" + origin + ")"
		}
	}
	return id
}

// Provider yields the current set of discovered scripts. It is called once per
// dispatch; the set may change between calls. No ordering or name uniqueness is
// guaranteed; uniqueness is enforced by Resolve.
type Provider interface {
	Scripts(ctx context.Context) ([]Script, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) ([]Script, error)

// Scripts calls f.
func (f ProviderFunc) Scripts(ctx context.Context) ([]Script, error) {
	return f(ctx)
}

// Discover calls p once. A panicking provider is reported as a *PanicError.
func Discover(ctx context.Context, p Provider) (scripts []Script, err error) {
	defer func() {
		if r := recover(); r != nil {
			scripts, err = nil, NewPanicError(r)
		}
	}()
	return p.Scripts(ctx)
}

// Static returns a Provider that always yields the given scripts.
func Static(scripts ...Script) Provider {
	return ProviderFunc(func(context.Context) ([]Script, error) {
		out := make([]Script, len(scripts))
		copy(out, scripts)
		return out, nil
	})
}

// Chain concatenates the discovery sets of several providers in order.
// The first provider error aborts discovery.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) ([]Script, error) {
		var all []Script
		for _, p := range providers {
			scripts, err := p.Scripts(ctx)
			if err != nil {
				return nil, err
			}
			all = append(all, scripts...)
		}
		return all, nil
	})
}

// Func is a Script backed by a plain function.
type Func struct {
	ScriptName string
	Fn         func(ctx context.Context, args []string) error

	origin string
}

// New returns a Script named name that runs fn. The caller's file and line
// are kept as the script's origin.
func New(name string, fn func(ctx context.Context, args []string) error) *Func {
	f := &Func{ScriptName: name, Fn: fn}
	if _, file, line, ok := runtime.Caller(1); ok {
		f.origin = fmt.Sprintf("%s:%d", path.Join(path.Base(path.Dir(file)), path.Base(file)), line)
	}
	return f
}

// Name implements Script.
func (f *Func) Name() string { return f.ScriptName }

// Origin implements Originator: where New was called, as dir/file.go:line.
// Funcs built as literals have no origin.
func (f *Func) Origin() string { return f.origin }

// Run implements Script. A nil Fn does nothing.
func (f *Func) Run(ctx context.Context, args []string) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, args)
}
