// Package apperror defines the failure kinds a pipeline run can report.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies where in the pipeline an error happened
type Kind string

const (
	// Fetch is a network, status or payload failure from an external source
	Fetch Kind = "FETCH"
	// Merge is a join or transform failure
	Merge Kind = "MERGE"
	// IO is an export failure
	IO Kind = "IO"
)

// Error carries enough context to diagnose a failed step from the log file alone
type Error struct {
	Kind       Kind
	Op         string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Endpoint != "" {
		b.WriteString(" (")
		b.WriteString(e.Endpoint)
		b.WriteString(")")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Fields returns the error context in the shape the logger expects
func (e *Error) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"kind":  string(e.Kind),
		"op":    e.Op,
		"error": e.Error(),
	}
	if e.Endpoint != "" {
		fields["endpoint"] = e.Endpoint
	}
	if e.StatusCode != 0 {
		fields["status_code"] = e.StatusCode
	}
	return fields
}

// NewFetch reports a failed call to an external source.
// statusCode is zero when no response was received.
func NewFetch(op, endpoint string, statusCode int, err error) *Error {
	return &Error{Kind: Fetch, Op: op, Endpoint: endpoint, StatusCode: statusCode, Err: err}
}

// NewMerge reports a failed join or transform
func NewMerge(op string, err error) *Error {
	return &Error{Kind: Merge, Op: op, Err: err}
}

// NewIO reports a failed export to the given destination
func NewIO(op, destination string, err error) *Error {
	return &Error{Kind: IO, Op: op, Endpoint: destination, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
