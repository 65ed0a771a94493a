package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Statement is a parametrized query: the text is a reusable template and all
// record values travel in Params, never interpolated into the text.
type Statement struct {
	Text   string
	Params map[string]any
}

// Summary aggregates the write counters reported by the database for one or
// more statements.
type Summary struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
	LabelsAdded          int
}

// Accumulate adds another summary's counters into s.
func (s *Summary) Accumulate(other Summary) {
	s.NodesCreated += other.NodesCreated
	s.RelationshipsCreated += other.RelationshipsCreated
	s.PropertiesSet += other.PropertiesSet
	s.LabelsAdded += other.LabelsAdded
}

// Client defines the minimal contract the writer needs from the underlying
// graph database.
type Client interface {
	// ExecuteBatch runs all statements inside one explicit transaction.
	// Either every statement commits or none do.
	ExecuteBatch(ctx context.Context, statements []Statement) (Summary, error)
	// Run executes a single statement in an auto-commit transaction.
	Run(ctx context.Context, statement Statement) (Summary, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// TxTimeout bounds a single transaction attempt. Zero means the driver
	// default.
	TxTimeout time.Duration
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")

// StatementError attributes a transaction failure to the statement that
// caused it.
type StatementError struct {
	Index int
	Cause error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d: %v", e.Index, e.Cause)
}
func (e *StatementError) Unwrap() error { return e.Cause }

// TransientError marks an error as likely to succeed on retry. Fake clients
// use it to exercise retry paths; the Neo4j client relies on the driver's own
// classification instead.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return "transient: " + e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether an error belongs to the retryable failure
// class: connectivity loss, lock contention, cluster leader transitions.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var se *StatementError
	if errors.As(err, &se) {
		return driverRetryable(se.Cause)
	}
	return driverRetryable(err)
}
