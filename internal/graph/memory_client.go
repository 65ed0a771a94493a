package graph

import (
	"context"
	"sync"
)

// MemoryClient is a simple in-memory implementation of the Client interface
// used for unit testing writer and sink logic without requiring a running
// graph database.
type MemoryClient struct {
	mu           sync.Mutex
	batchCalls   [][]Statement
	runCalls     []Statement
	pendingErrs  []error
	summaries    []Summary
	connectivity error
	closed       bool
}

// NewMemoryClient instantiates the in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailNext queues errors to be returned, in order, by subsequent ExecuteBatch
// or Run calls before any succeed.
func (m *MemoryClient) FailNext(errs ...error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingErrs = append(m.pendingErrs, errs...)
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushSummary appends a summary that will be returned on the next successful
// ExecuteBatch or Run call.
func (m *MemoryClient) PushSummary(s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
}

func (m *MemoryClient) ExecuteBatch(_ context.Context, statements []Statement) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextErr(); err != nil {
		return Summary{}, err
	}

	captured := make([]Statement, 0, len(statements))
	for _, stmt := range statements {
		captured = append(captured, Statement{Text: stmt.Text, Params: cloneMap(stmt.Params)})
	}
	m.batchCalls = append(m.batchCalls, captured)

	return m.nextSummary(), nil
}

func (m *MemoryClient) Run(_ context.Context, statement Statement) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextErr(); err != nil {
		return Summary{}, err
	}

	m.runCalls = append(m.runCalls, Statement{Text: statement.Text, Params: cloneMap(statement.Params)})
	return m.nextSummary(), nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// BatchCalls returns a snapshot of executed transaction batches.
func (m *MemoryClient) BatchCalls() [][]Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Statement, len(m.batchCalls))
	for i, call := range m.batchCalls {
		out[i] = append([]Statement(nil), call...)
	}
	return out
}

// RunCalls returns a snapshot of statements executed via Run.
func (m *MemoryClient) RunCalls() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.runCalls...)
}

func (m *MemoryClient) nextErr() error {
	if len(m.pendingErrs) == 0 {
		return nil
	}
	err := m.pendingErrs[0]
	m.pendingErrs = m.pendingErrs[1:]
	return err
}

func (m *MemoryClient) nextSummary() Summary {
	if len(m.summaries) == 0 {
		return Summary{}
	}
	s := m.summaries[0]
	m.summaries = m.summaries[1:]
	return s
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
