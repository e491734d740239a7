package core

import (
	"errors"
	"fmt"
)

// LexError reports malformed input at a known byte offset. Callers may
// resynchronize by seeking past Offset and continuing.
type LexError struct {
	Offset int64
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Msg)
}

// ParseReason classifies why a document could not be built.
type ParseReason int

const (
	// TruncatedFile means the file ends before a required structure.
	TruncatedFile ParseReason = iota + 1
	// CorruptXref means no usable cross-reference data exists, even after
	// scanning the file for object markers.
	CorruptXref
	// UnresolvedTrailer means no trailer could be found or rebuilt, or it
	// does not lead to a document catalog.
	UnresolvedTrailer
)

func (r ParseReason) String() string {
	switch r {
	case TruncatedFile:
		return "TruncatedFile"
	case CorruptXref:
		return "CorruptXref"
	case UnresolvedTrailer:
		return "UnresolvedTrailer"
	default:
		return "Unknown"
	}
}

// ParseError is returned when a document's object model cannot be built.
type ParseError struct {
	Reason ParseReason
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse error: " + e.Reason.String()
	}
	return fmt.Sprintf("parse error (%s): %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseReason reports whether err is a ParseError with the given reason.
func IsParseReason(err error, reason ParseReason) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Reason == reason
}
