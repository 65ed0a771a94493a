package writer

import "github.com/ossien/graphsink/internal/fact"

// WriteError is the terminal outcome of a flush cycle: either a
// non-retryable failure (constraint violation, bad statement, auth) or a
// transient failure class that exhausted its retry budget.
type WriteError struct {
	Kind fact.Kind
	Type string
	// Attempts is how many transaction attempts were made.
	Attempts int
	// Exhausted is true when the underlying failure was transient but the
	// retry budget ran out.
	Exhausted bool
	Cause     error
}

func (e *WriteError) Error() string {
	if e.Exhausted {
		return "write " + e.Kind.String() + " " + e.Type + ": retries exhausted: " + e.Cause.Error()
	}
	return "write " + e.Kind.String() + " " + e.Type + ": " + e.Cause.Error()
}

func (e *WriteError) Unwrap() error { return e.Cause }
