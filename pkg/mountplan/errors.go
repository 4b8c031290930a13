package mountplan

import (
	"errors"
	"fmt"
	"strings"
)

// The resolution pipeline uses a closed set of error kinds so callers can
// pattern-match behavior: only ScopeUnavailableError supports silent fallback,
// only the assembler downgrades a profile failure to a warning, everything
// else propagates untouched.

// NotFoundError reports that a profile, agent, or module source was absent
// after exhausting all search layers.
type NotFoundError struct {
	// Kind is what was being looked up (e.g., KindProvider, or "profile").
	Kind string

	// Name is the identifier that failed to resolve.
	Name string

	// LayersChecked lists the layers or paths that were searched, in order,
	// for diagnostic display.
	LayersChecked []string
}

func (e *NotFoundError) Error() string {
	if len(e.LayersChecked) == 0 {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found (checked: %s)", e.Kind, e.Name, strings.Join(e.LayersChecked, ", "))
}

// CycleError reports a profile inheritance loop. It is always fatal and
// never auto-broken; Chain holds the full path for diagnostics.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular profile inheritance: %s", strings.Join(e.Chain, " -> "))
}

// ScopeUnavailableError reports that a requested settings scope cannot be
// used in the current working context (e.g., project scope while running
// from the home directory).
type ScopeUnavailableError struct {
	Scope string
	Hint  string
}

func (e *ScopeUnavailableError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("scope %q is not available here: %s", e.Scope, e.Hint)
	}
	return fmt.Sprintf("scope %q is not available here", e.Scope)
}

// ValidationError reports a malformed document or a semantically invalid
// field value. Always fatal at load time.
type ValidationError struct {
	// Path is the source file, when the error is tied to one.
	Path string

	// Field is the document field at fault, when known.
	Field string

	// Message describes what is wrong.
	Message string

	// Err is the underlying parse or validation error, if any.
	Err error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsCycle reports whether err is (or wraps) a CycleError.
func IsCycle(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

// IsScopeUnavailable reports whether err is (or wraps) a ScopeUnavailableError.
func IsScopeUnavailable(err error) bool {
	var e *ScopeUnavailableError
	return errors.As(err, &e)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
