package script

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

// StackTracer is implemented by errors that carry the call stack they were
// created on.
type StackTracer interface {
	StackTrace() []uintptr
}

type stackError struct {
	err error
	pcs []uintptr
}

func (e *stackError) Error() string         { return e.err.Error() }
func (e *stackError) Unwrap() error         { return e.err }
func (e *stackError) StackTrace() []uintptr { return e.pcs }

// WithStack annotates err with the caller's stack. It returns nil for a nil err
// and leaves errors that already carry a stack untouched.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var st StackTracer
	if errors.As(err, &st) {
		return err
	}
	return &stackError{err: err, pcs: callers(3)}
}

// Errorf formats like fmt.Errorf and records the caller's stack. Scripts use it
// so their failures point at their own code.
func Errorf(format string, args ...any) error {
	return &stackError{err: fmt.Errorf(format, args...), pcs: callers(3)}
}

// PanicError wraps a value recovered from a panicking script together with the
// stack captured at the point of recovery.
type PanicError struct {
	Value any
	pcs   []uintptr
}

// NewPanicError captures the current stack. Call it from the deferred function
// that recovered so the panicking frames are still on the stack.
func NewPanicError(value any) *PanicError {
	return &PanicError{Value: value, pcs: callers(3)}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panic value that is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StackTrace implements StackTracer.
func (e *PanicError) StackTrace() []uintptr { return e.pcs }

func callers(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}
