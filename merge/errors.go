package merge

import (
	"fmt"
	"strings"
)

// SourceError reports a source document that contributed no pages.
type SourceError struct {
	Name string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("merge source %s: %v", e.Name, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// MergeError is returned when no page could be merged. No output is
// written in that case.
type MergeError struct {
	// Skipped holds a *SourceError per source that was skipped.
	Skipped []error
}

func (e *MergeError) Error() string {
	if len(e.Skipped) == 0 {
		return "merge: no sources"
	}
	msgs := make([]string, len(e.Skipped))
	for i, err := range e.Skipped {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("merge: no pages merged from %d sources: %s", len(e.Skipped), strings.Join(msgs, "; "))
}

func (e *MergeError) Unwrap() []error { return e.Skipped }
