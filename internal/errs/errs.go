package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the category an error falls into.
type Kind string

const (
	KindValidation Kind = "validation"
	KindSecurity   Kind = "security"
	KindIO         Kind = "io"
	KindProcess    Kind = "process"
	KindUnknown    Kind = "unknown"
)

// Sentinels matched by errors.Is on the typed errors below.
var (
	ErrValidation = errors.New("validation failed")
	ErrSecurity   = errors.New("security check failed")
	ErrIO         = errors.New("filesystem operation failed")
	ErrProcess    = errors.New("external command failed")
)

// ValidationError rejects user input before anything is touched.
type ValidationError struct {
	Field       string
	Value       string
	Reason      string
	Suggestions []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Value != "" {
		fmt.Fprintf(&b, "invalid %s %q: %s", e.Field, e.Value, e.Reason)
	} else {
		fmt.Fprintf(&b, "invalid %s: %s", e.Field, e.Reason)
	}
	writeSuggestions(&b, e.Suggestions)
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// WithSuggestion appends a hint shown under the message.
func (e *ValidationError) WithSuggestion(s string) *ValidationError {
	e.Suggestions = append(e.Suggestions, s)
	return e
}

// Validation creates a ValidationError for field.
func Validation(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// SecurityError reports a path escape or a disallowed argument.
type SecurityError struct {
	Subject string
	Reason  string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("rejected %q: %s", e.Subject, e.Reason)
}

func (e *SecurityError) Is(target error) bool { return target == ErrSecurity }

// Security creates a SecurityError.
func Security(subject, reason string) *SecurityError {
	return &SecurityError{Subject: subject, Reason: reason}
}

// IOError wraps a filesystem failure with the operation and path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// IO creates an IOError.
func IO(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// ProcessError reports an external command that exited non-zero, timed
// out, or could not be started.
type ProcessError struct {
	Argv     []string
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	cmd := strings.Join(e.Argv, " ")
	switch {
	case e.TimedOut:
		fmt.Fprintf(&b, "%s: timed out", cmd)
	case e.ExitCode > 0:
		fmt.Fprintf(&b, "%s: exit status %d", cmd, e.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", cmd, e.Err)
	default:
		fmt.Fprintf(&b, "%s: failed", cmd)
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		b.WriteString("\n")
		b.WriteString(tail)
	}
	return b.String()
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// Classify returns the category of err, looking through wrapping.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrSecurity):
		return KindSecurity
	case errors.Is(err, ErrProcess):
		return KindProcess
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

// PreMutation reports whether err is one of the categories that are always
// raised before the filesystem is touched.
func PreMutation(err error) bool {
	k := Classify(err)
	return k == KindValidation || k == KindSecurity
}

func writeSuggestions(b *strings.Builder, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	b.WriteString("\n\nSuggestions:")
	for _, s := range suggestions {
		fmt.Fprintf(b, "\n  • %s", s)
	}
}
