package script

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Frame is one resolved call stack entry.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// FrameFilter keeps frames whose function belongs to application-owned
// packages, identified by import path prefix.
type FrameFilter struct {
	prefixes []string
	compact  bool
}

// NewFrameFilter keeps frames whose fully qualified function name starts with
// any of prefixes. Empty prefixes are ignored. A filter without prefixes keeps
// nothing.
func NewFrameFilter(prefixes ...string) FrameFilter {
	var kept []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return FrameFilter{prefixes: kept}
}

// Compact returns a copy of the filter that omits file and line information.
func (f FrameFilter) Compact() FrameFilter {
	f.compact = true
	return f
}

// Keep reports whether a function name is application-owned.
func (f FrameFilter) Keep(function string) bool {
	for _, p := range f.prefixes {
		if strings.HasPrefix(function, p) {
			return true
		}
	}
	return false
}

// Frames resolves program counters and drops frames outside the application.
func (f FrameFilter) Frames(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	var out []Frame
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if fr.Function != "" && f.Keep(fr.Function) {
			out = append(out, Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		}
		if !more {
			break
		}
	}
	return out
}

// Format renders err and its cause chain with filtered frames:
//
//	<message>
//		at <function> (<file>:<line>)
//	Caused by: <message>
//		at ...
//
// The first entry uses the outermost stack found in the error tree. Every other
// link that carries its own stack, including each branch of a joined error, is
// reported as a cause, filtered the same way.
func (f FrameFilter) Format(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString("\n")

	var outer StackTracer
	if errors.As(err, &outer) {
		f.writeFrames(&b, outer.StackTrace())
	}

	f.writeCauses(&b, err, outer)

	return b.String()
}

// writeCauses walks the error tree depth first, following both single and
// joined wrapping, and reports every link with a stack other than outer.
func (f FrameFilter) writeCauses(b *strings.Builder, err error, outer StackTracer) {
	if err == nil {
		return
	}
	if st, ok := err.(StackTracer); ok && !sameStack(st, outer) {
		b.WriteString("Caused by: ")
		b.WriteString(err.Error())
		b.WriteString("\n")
		f.writeFrames(b, st.StackTrace())
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			f.writeCauses(b, e, outer)
		}
	case interface{ Unwrap() error }:
		f.writeCauses(b, u.Unwrap(), outer)
	}
}

func (f FrameFilter) writeFrames(b *strings.Builder, pcs []uintptr) {
	for _, fr := range f.Frames(pcs) {
		b.WriteString("\tat ")
		if f.compact {
			b.WriteString(fr.Function)
		} else {
			b.WriteString(fr.String())
		}
		b.WriteString("\n")
	}
}

func sameStack(a, b StackTracer) bool {
	if a == nil || b == nil {
		return false
	}
	pa, pb := a.StackTrace(), b.StackTrace()
	if len(pa) != len(pb) || len(pa) == 0 {
		return false
	}
	return &pa[0] == &pb[0]
}

// DefaultAppPackages returns the trace prefixes every binary keeps: the main
// package and the main module, when build info is available.
func DefaultAppPackages() []string {
	prefixes := []string{"main."}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		prefixes = append(prefixes, info.Main.Path+"/", info.Main.Path+".")
	}
	return prefixes
}
