package script

import (
	"context"
	"fmt"
)

// Failure is a script run that returned an error or panicked. Trace holds the
// cause report with frames outside the application dropped.
type Failure struct {
	Name  string
	Err   error
	Trace string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("Script failed: %s\n%s", f.Name, f.Trace)
}

func (f *Failure) Unwrap() error { return f.Err }

// Invoke runs s once with args. A returned error or a panic is reported as a
// *Failure whose trace is rendered through filter. A returned error without a
// stack gets the stack of this call.
func Invoke(ctx context.Context, s Script, args []string, filter FrameFilter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause := NewPanicError(r)
			err = &Failure{Name: s.Name(), Err: cause, Trace: filter.Format(cause)}
		}
	}()

	if runErr := s.Run(ctx, args); runErr != nil {
		runErr = WithStack(runErr)
		return &Failure{Name: s.Name(), Err: runErr, Trace: filter.Format(runErr)}
	}
	return nil
}
