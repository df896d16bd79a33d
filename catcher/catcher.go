package catcher

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Recovered describes a single intercepted panic. Value is the value that
// was passed to panic and Stack is the stack of the panicking goroutine,
// captured at the interception point.
type Recovered struct {
	Value any
	Stack []byte
}

// String renders the panic as a single human-readable line. Runtime errors
// (out of range indexing, nil dereferences and the like) already describe
// themselves, so their text is used as is. Any other value is prefixed with
// "panic:".
func (r *Recovered) String() string {
	switch v := r.Value.(type) {
	case runtime.Error:
		return v.Error()
	case error:
		return "panic: " + v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// AsError adapts the recovery for callers that propagate failures through
// error returns. The result unwraps to a *PanicError.
func (r *Recovered) AsError() error {
	return &PanicError{Message: r.String(), Stack: r.Stack}
}

// PanicError is the error form of a recovered panic.
type PanicError struct {
	Message string
	Stack   []byte
}

func (e *PanicError) Error() string { return e.Message }

// Catch invokes block exactly once on the calling goroutine, inside a scope
// that intercepts panics. It returns nil if and only if the block returned
// normally.
//
// Whether a panic occurred is decided by a completion flag, not by
// inspecting the recovered value, so panic(nil) is reported like any other
// panic. Catch itself never fails and holds no state; calls are independent
// and may be nested.
func Catch(block func()) (recovered *Recovered) {
	completed := false
	defer func() {
		if completed {
			return
		}
		recovered = &Recovered{Value: recover(), Stack: debug.Stack()}
	}()
	block()
	completed = true
	return nil
}

// Capture runs block via Catch and reports the outcome as an optional
// description: nil when the block completed, otherwise the panic rendered
// by Recovered.String.
func Capture(block func()) *string {
	r := Catch(block)
	if r == nil {
		return nil
	}
	s := r.String()
	return &s
}
