// Package pipeerr defines the error taxonomy shared by the pipeline packages.
//
// Every failure that crosses a package boundary carries a Code so the tool
// layer can decide the process exit status without string matching.
package pipeerr

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Code classifies a pipeline failure.
type Code int

const (
	// CodeUnknown is used for errors that were not produced by this module.
	CodeUnknown Code = iota
	// CodeConfiguration marks bad command line flags or config files.
	CodeConfiguration
	// CodeStructure marks an ambiguous or unknown on-disk table layout.
	CodeStructure
	// CodeKeyMismatch marks join key columns that are missing or not unique.
	CodeKeyMismatch
	// CodeEventSetMismatch marks two tables that should describe the same
	// events but do not.
	CodeEventSetMismatch
	// CodeDomain marks degenerate geometry, e.g. a horizontal pointing.
	CodeDomain
	// CodeIO marks backing store failures.
	CodeIO
	// CodeValue marks invalid arguments, such as requesting a table that
	// is absent from the file.
	CodeValue
)

func (c Code) String() string {
	switch c {
	case CodeConfiguration:
		return "configuration"
	case CodeStructure:
		return "structure"
	case CodeKeyMismatch:
		return "key_mismatch"
	case CodeEventSetMismatch:
		return "event_set_mismatch"
	case CodeDomain:
		return "domain"
	case CodeIO:
		return "io"
	case CodeValue:
		return "value"
	default:
		return "unknown"
	}
}

// Error is the coded error type returned across package boundaries.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human readable description
	Metadata map[string]string // Diagnostic context, e.g. table names
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Metadata) > 0 {
		keys := slices.Sorted(maps.Keys(e.Metadata))
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Metadata[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata creates an error carrying diagnostic key/value pairs.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrConfiguration    = New(CodeConfiguration, "configuration error")
	ErrStructure        = New(CodeStructure, "structure error")
	ErrKeyMismatch      = New(CodeKeyMismatch, "key mismatch")
	ErrEventSetMismatch = New(CodeEventSetMismatch, "event set mismatch")
	ErrDomain           = New(CodeDomain, "domain error")
	ErrIO               = New(CodeIO, "i/o error")
	ErrValue            = New(CodeValue, "value error")
)

// CodeOf returns the code of the first *Error in the chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Exit statuses used by the command line tools.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitInterrupted   = 130
)

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if CodeOf(err) == CodeConfiguration {
		return ExitConfiguration
	}
	return ExitFailure
}
