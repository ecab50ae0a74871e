// Package runnertest provides a recording Runner for tests.
package runnertest

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// HandlerFunc produces the result of a fake invocation.
type HandlerFunc func(ctx context.Context, call Call) ([]byte, error)

// Fake records every call and delegates to Handler. It is safe for concurrent use.
type Fake struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []Call
}

// Run records the call and returns Handler's result, or success when Handler is nil.
func (f *Fake) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(ctx, call)
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
