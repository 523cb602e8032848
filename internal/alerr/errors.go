// Package alerr provides standardized error handling for ercat.
// All errors have stable, machine-readable codes, structured context, and proper wrapping.
package alerr

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number} where category is 1-9 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Definition errors (E1xxx) - the declarations cannot form a catalog
	ErrDefinitionConflict     Code = "E1001" // Duplicate type, duplicate triple or conflicting shared property
	ErrUnknownType            Code = "E1002" // Reference to an entity type that was never registered
	ErrUnknownRelation        Code = "E1003" // Reference to a relation type that was never registered
	ErrAmbiguousRelation      Code = "E1004" // Relation points to both final and non-final types
	ErrCircularSpecialization Code = "E1005" // Specialization chain loops back on itself
	ErrFinalSubject           Code = "E1006" // Final (scalar) type used as a relation subject

	// Property errors (E2xxx) - a declaration carries a bad property
	ErrMalformedProperty   Code = "E2001" // Property value is malformed (e.g. cardinality)
	ErrUnsupportedProperty Code = "E2002" // Property is not accepted by this kind of declaration
	ErrInvalidConstraint   Code = "E2003" // Constraint is invalid or not applicable to its target
	ErrInvalidIdentifier   Code = "E2004" // Type or relation name is empty or malformed
	ErrInvalidPermission   Code = "E2005" // Unknown permission action

	// Catalog query errors (E3xxx) - a finished catalog was misused
	ErrInvalidEntity Code = "E3001" // Entity values do not satisfy the schema
	ErrFinalEntity   Code = "E3002" // Operation requires a non-final entity type
	ErrNotAttribute  Code = "E3003" // Operation requires a final (attribute) relation

	// Loader errors (E4xxx) - declaration sources could not be read
	ErrLoadFailed Code = "E4001" // Declaration source could not be read
	ErrParse      Code = "E4002" // Declaration source could not be parsed

	// Builder errors (E5xxx)
	ErrBuildPhase Code = "E5001" // Builder phase called out of order

	// Internal errors (E9xxx) - unexpected internal errors
	EInternalError Code = "E9001" // Internal error
)

// Error is the standard error type for ercat.
// It provides structured error information with codes, context, and wrapping support.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
	stack   string         // Stack trace for debugging
}

// Error returns the formatted error string.
// Format:
//
//	[E1001] conflicting values for shared relation property
//	  property: inlined
//	  relation: owns
//	  values: true/false
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	// Sorted for deterministic output
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target error matches this error.
// It matches if target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// SetMessage replaces the error message, used to add context in wrappers.
func (e *Error) SetMessage(msg string) {
	e.message = msg
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// GetCause returns the underlying cause error.
func (e *Error) GetCause() error {
	return e.cause
}

// GetStack returns the stack trace.
func (e *Error) GetStack() string {
	return e.stack
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithEntity adds entity type context to the error.
func (e *Error) WithEntity(name string) *Error {
	return e.With("entity", name)
}

// WithRelation adds relation type context to the error.
func (e *Error) WithRelation(name string) *Error {
	return e.With("relation", name)
}

// WithProperty adds the offending property name to the error.
func (e *Error) WithProperty(name string) *Error {
	return e.With("property", name)
}

// WithLocation adds complete source location context (file, line, column).
func (e *Error) WithLocation(file string, line, col int) *Error {
	e.With("file", file)
	if line > 0 {
		e.With("line", line)
	}
	if col > 0 {
		e.With("column", col)
	}
	return e
}

// WithNote adds a note to the error (displayed as "note: ...").
func (e *Error) WithNote(note string) *Error {
	notes, _ := e.context["notes"].([]string)
	notes = append(notes, note)
	return e.With("notes", notes)
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	if help == "" {
		return e
	}
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// WithFields attaches per-field failure messages, used by data validation.
func (e *Error) WithFields(fields map[string]string) *Error {
	return e.With("fields", maps.Clone(fields))
}

// Location returns the file location if set.
func (e *Error) Location() (file string, line, col int, ok bool) {
	file, _ = e.context["file"].(string)
	line, _ = e.context["line"].(int)
	col, _ = e.context["column"].(int)
	ok = file != ""
	return
}

// HasLocation reports whether a source file has been attached.
func (e *Error) HasLocation() bool {
	_, ok := e.context["file"]
	return ok
}

// Notes returns all notes attached to this error.
func (e *Error) Notes() []string {
	notes, _ := e.context["notes"].([]string)
	return notes
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// Fields returns the per-field failures attached with WithFields.
func (e *Error) Fields() map[string]string {
	fields, _ := e.context["fields"].(map[string]string)
	return fields
}

// captureStack captures a stack trace for debugging.
func captureStack(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return b.String()
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
		stack:   captureStack(3),
	}
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var alerr *Error
	if errors.As(err, &alerr) {
		return alerr.code
	}

	return ""
}

// Is checks if an error has the specified code.
func Is(err error, code Code) bool {
	return GetErrorCode(err) == code
}

// HasCode checks if an error has any error code.
func HasCode(err error) bool {
	return GetErrorCode(err) != ""
}

// As returns the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
