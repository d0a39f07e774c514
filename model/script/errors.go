package script

import "fmt"

// ParseError describes a single malformed script line. Errors returned by
// Parse wrap one ParseError per offending line; use errors.As to inspect
// individual lines.
type ParseError struct {
	Reason string
	Line   Line
}

// NewParseError returns a parse error for the given line.
func NewParseError(reason string, line Line) *ParseError {
	return &ParseError{Reason: reason, Line: line}
}

// Error prefixes the reason with the line origin.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Line.Context(), e.Reason)
}
