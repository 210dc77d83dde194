// Package shelltest provides a scriptable shell.Executor for tests.
package shelltest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/itchio/capsule-release/pkg/shell"
)

// Handler answers one command. Returning a nil result yields an empty one.
type Handler func(cmd shell.Command) (*shell.Result, error)

// Executor records every command and dispatches it to a handler chosen by
// the base name of the program (".exe" stripped). Commands without a handler
// succeed with empty output.
type Executor struct {
	mu       sync.Mutex
	handlers map[string]Handler
	Commands []shell.Command
}

// New creates an Executor with no handlers
func New() *Executor {
	return &Executor{handlers: make(map[string]Handler)}
}

// Handle registers h for program
func (e *Executor) Handle(program string, h Handler) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[program] = h
	return e
}

// Execute implements shell.Executor
func (e *Executor) Execute(ctx context.Context, cmd shell.Command) (*shell.Result, error) {
	e.mu.Lock()
	e.Commands = append(e.Commands, cmd)
	h := e.handlers[Name(cmd.Program)]
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h == nil {
		return &shell.Result{}, nil
	}

	res, err := h(cmd)
	if res == nil {
		res = &shell.Result{}
	}
	return res, err
}

// Lines returns every recorded command line
func (e *Executor) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	lines := make([]string, 0, len(e.Commands))
	for _, c := range e.Commands {
		lines = append(lines, c.String())
	}
	return lines
}

// Count returns how many recorded commands ran program
func (e *Executor) Count(program string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.Commands {
		if Name(c.Program) == program {
			n++
		}
	}
	return n
}

// Name strips directories and a trailing ".exe" from a program path
func Name(program string) string {
	return strings.TrimSuffix(filepath.Base(program), ".exe")
}

// Output is a handler that prints out and exits zero
func Output(out string) Handler {
	return func(shell.Command) (*shell.Result, error) {
		return &shell.Result{Stdout: out, Combined: out}, nil
	}
}

// Fail is a handler that exits with status code and prints out
func Fail(code int, out string) Handler {
	return func(cmd shell.Command) (*shell.Result, error) {
		return &shell.Result{Stdout: out, Combined: out, ExitCode: code},
			&shell.ExitError{Command: cmd.String(), ExitCode: code, Output: out}
	}
}

// Env looks up key in a command's environment
func Env(cmd shell.Command, key string) (string, bool) {
	for i := len(cmd.Env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(cmd.Env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}
