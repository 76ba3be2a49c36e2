// Package script provides the narrow, swappable capability the core
// treats the embedded scripting runtime as (spec §4.2). No JS engine
// exists anywhere in the retrieved reference corpus, so VM is implemented
// here as a minimal sandboxed expression evaluator rather than binding an
// external JS runtime (see DESIGN.md for the standard-library
// justification). Callers only ever see the VM interface, so swapping in
// a real JS engine later is a one-package change.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/nodeconv/subconverter/node"
)

// EntryPoint names the five hook functions the preprocessor and group
// builder look up after evaluating a script (spec §4.2).
type EntryPoint string

const (
	EntryParse   EntryPoint = "parse"
	EntryFilter  EntryPoint = "filter"
	EntryRename  EntryPoint = "rename"
	EntryEmoji   EntryPoint = "getEmoji"
	EntryCompare EntryPoint = "compare"
)

// VM is the capability interface the pipeline depends on. Implementations
// must be safe to Eval concurrently once compiled, unless CleanContext
// requests a fresh runtime per invocation.
type VM interface {
	// Eval compiles and runs code, binding node (and, for compare, other)
	// into scope, and returns the named entry point's result.
	Eval(ctx context.Context, code string, entry EntryPoint, n *node.Proxy, other *node.Proxy) (Value, error)
}

// Value is the tagged result a script entry point can return.
type Value struct {
	Bool   bool
	String string
	Int    int
	IsNil  bool
}

// Authorized gates whether scripts run at all; when false, every Eval call
// is a silent no-op (spec §4.2 "when unauthorized, scripts silently do not
// run").
type Gate struct {
	Authorized   bool
	Timeout      time.Duration
	CleanContext bool
}

// ErrTimeout is returned when a script exceeds its per-task timeout and is
// aborted (spec §5 "Cancellation & timeouts").
var ErrTimeout = fmt.Errorf("script: evaluation timed out")

// Run evaluates code under gate's authorization/timeout policy. It is the
// single entry point the preprocessor and group builder call through --
// they never touch a VM directly, keeping the scripting runtime
// swappable per spec §4.2/§9.
func Run(ctx context.Context, vm VM, gate Gate, code string, entry EntryPoint, n, other *node.Proxy) (Value, error) {
	if !gate.Authorized || code == "" {
		return Value{IsNil: true}, nil
	}
	timeout := gate.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   Value
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := vm.Eval(cctx, code, entry, n, other)
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-cctx.Done():
		return Value{IsNil: true}, ErrTimeout
	}
}
