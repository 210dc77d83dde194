// Package shell runs external commands for the release pipeline and captures
// their output. A non-zero exit status is always returned as an error; nothing
// is retried.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
)

// Command describes one process invocation
type Command struct {
	Program string
	Args    []string
	Dir     string   // Working directory, inherited when empty
	Env     []string // Complete environment, inherited when nil
}

// String renders the command line for logs and error messages
func (c Command) String() string {
	parts := append([]string{c.Program}, c.Args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t\"") {
			parts[i] = fmt.Sprintf("%q", p)
		}
	}
	return strings.Join(parts, " ")
}

// Result holds the output of a finished command
type Result struct {
	Stdout   string
	Stderr   string
	Combined string // Stdout and stderr interleaved in write order
	ExitCode int
}

// Executor runs commands synchronously
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError reports a command that ran but exited with a non-zero status
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("`%s` exited with status %d", e.Command, e.ExitCode)
}

// CommandExecutor implements Executor with os/exec
type CommandExecutor struct {
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
}

// Option configures a CommandExecutor
type Option func(*CommandExecutor)

// WithLogger logs every command line before it runs
func WithLogger(logger *log.Logger) Option {
	return func(e *CommandExecutor) {
		e.logger = logger
	}
}

// WithConsole mirrors command output to the given writers while capturing it
func WithConsole(stdout, stderr io.Writer) Option {
	return func(e *CommandExecutor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// New creates a CommandExecutor
func New(opts ...Option) *CommandExecutor {
	e := &CommandExecutor{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd to completion
func (e *CommandExecutor) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Program == "" {
		return nil, errors.New("empty command")
	}

	e.logger.Printf("· %s", cmd)

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	var stdoutBuf, stderrBuf bytes.Buffer
	combined := &lockedBuffer{}

	stdoutWriters := []io.Writer{&stdoutBuf, combined}
	if e.stdout != nil {
		stdoutWriters = append(stdoutWriters, e.stdout)
	}
	stderrWriters := []io.Writer{&stderrBuf, combined}
	if e.stderr != nil {
		stderrWriters = append(stderrWriters, e.stderr)
	}
	c.Stdout = io.MultiWriter(stdoutWriters...)
	c.Stderr = io.MultiWriter(stderrWriters...)

	err := c.Run()

	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Combined: combined.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{
			Command:  cmd.String(),
			ExitCode: result.ExitCode,
			Output:   result.Combined,
		}
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}

// lockedBuffer serializes writes coming from the stdout and stderr copiers
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
