package etslog

import "fmt"

// LineError locates a failure in the source log. Line is 0-based.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// MalformedRowError is returned when the tag of a record is missing or is not
// an integer.
type MalformedRowError struct {
	Value string
	Err   error
}

func (e *MalformedRowError) Error() string {
	switch {
	case e.Err == nil:
		return "malformed row: missing tag"
	case e.Value == "":
		return fmt.Sprintf("malformed row: %v", e.Err)
	default:
		return fmt.Sprintf("malformed row: tag %q: %v", e.Value, e.Err)
	}
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a required field of a record cannot be
// converted. Field is the index into the record, including the tag.
type DecodeError struct {
	Tag    RowTag
	Field  int
	Name   string
	Value  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s field %d (%s)", e.Tag, e.Field, e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %q: %v", e.Value, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// LayoutInconsistencyError is returned when the assembled results cannot be
// arranged as a requirements by runs grid.
type LayoutInconsistencyError struct {
	Path   string
	Reason string
}

func (e *LayoutInconsistencyError) Error() string {
	if e.Path == "" {
		return "inconsistent layout: " + e.Reason
	}
	return fmt.Sprintf("%s: inconsistent layout: %s", e.Path, e.Reason)
}
