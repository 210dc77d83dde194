// pkg/core/errors.go
package core

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration indicates bad arguments, an unsupported platform or a missing field
	ErrConfiguration = stderrors.New("configuration error")

	// ErrToolchain indicates the toolchain could not be installed or verified
	ErrToolchain = stderrors.New("toolchain error")

	// ErrBuild indicates a compiler invocation exited with a non-zero status
	ErrBuild = stderrors.New("build error")

	// ErrInjectionTest indicates the runner output did not match the sentinel
	ErrInjectionTest = stderrors.New("injection test failure")

	// ErrIO indicates staging, stripping, signing or copying failed
	ErrIO = stderrors.New("io error")
)

// Error wraps a stage failure with the platform it happened on.
// errors.Is matches both the Kind sentinel and anything in the Err chain.
type Error struct {
	Kind     error  // One of the sentinels above
	Op       string // Operation that failed
	Platform string // Staging key if applicable
	Err      error  // Underlying error, carries a stack trace
}

// NewError wraps err with a kind, an operation and a platform key.
// The stack is captured here unless err already carries one.
func NewError(kind error, op, platform string, err error) error {
	if err == nil {
		err = kind
	}
	return &Error{
		Kind:     kind,
		Op:       op,
		Platform: platform,
		Err:      withStack(err),
	}
}

// Errorf is NewError with a formatted message as the underlying error.
func Errorf(kind error, op, platform, format string, args ...any) error {
	return &Error{
		Kind:     kind,
		Op:       op,
		Platform: platform,
		Err:      errors.Errorf(format, args...),
	}
}

func (e *Error) Error() string {
	prefix := e.Op
	if e.Platform != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Platform)
	}
	if e.Err == nil || errors.Cause(e.Err) == e.Kind {
		return fmt.Sprintf("%s: %v", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", prefix, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Format prints the stack trace of the underlying error for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s\n%+v", e.Error(), e.Err)
			return
		}
		fmt.Fprint(s, e.Error())
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func withStack(err error) error {
	var st stackTracer
	if stderrors.As(err, &st) {
		return err
	}
	return errors.WithStack(err)
}
