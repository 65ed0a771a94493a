package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ossien/graphsink/internal/graph"
)

// Factory opens a connector sink for one backend capability.
type Factory func(ctx context.Context, opts graph.Options, cfg Config, logger *slog.Logger) (*Sink, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a connector available under a capability name. It panics on
// a duplicate name, like database/sql.Register.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("sink: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("sink: Register called twice for connector " + name)
	}
	registry[name] = factory
}

// Open builds a sink for the named connector capability.
func Open(ctx context.Context, name string, opts graph.Options, cfg Config, logger *slog.Logger) (*Sink, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown connector %q (registered: %v)", name, Connectors())
	}
	return factory(ctx, opts, cfg, logger)
}

// Connectors lists registered capability names, sorted.
func Connectors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("neo4j", func(ctx context.Context, opts graph.Options, cfg Config, logger *slog.Logger) (*Sink, error) {
		client, err := graph.NewNeo4jClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return New(client, cfg, logger), nil
	})
}
