package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewNeo4jClient establishes a Bolt connection using the official Neo4j
// driver. Encryption follows the URI scheme (neo4j+s / bolt+s for TLS).
func NewNeo4jClient(ctx context.Context, opts Options) (Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	return &neo4jClient{
		driver:   driver,
		database: opts.Database,
		options:  opts,
	}, nil
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	options  Options
}

// ExecuteBatch runs every statement inside one explicit transaction. The
// transaction is rolled back on the first failing statement.
func (c *neo4jClient) ExecuteBatch(ctx context.Context, statements []Statement) (Summary, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx, c.txConfig)
	if err != nil {
		return Summary{}, fmt.Errorf("begin transaction: %w", err)
	}

	var total Summary
	for i, stmt := range statements {
		summary, err := runInTx(ctx, tx, stmt)
		if err != nil {
			_ = tx.Rollback(ctx)
			return Summary{}, &StatementError{Index: i, Cause: err}
		}
		total.Accumulate(summary)
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("commit transaction: %w", err)
	}
	return total, nil
}

// Run executes a single statement in an auto-commit transaction.
func (c *neo4jClient) Run(ctx context.Context, statement Statement) (Summary, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, statement.Text, statement.Params)
	if err != nil {
		return Summary{}, err
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summaryFromCounters(summary), nil
}

func (c *neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *neo4jClient) txConfig(cfg *neo4j.TransactionConfig) {
	if c.options.TxTimeout > 0 {
		cfg.Timeout = c.options.TxTimeout
	}
}

func runInTx(ctx context.Context, tx neo4j.ExplicitTransaction, stmt Statement) (Summary, error) {
	res, err := tx.Run(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return Summary{}, err
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summaryFromCounters(summary), nil
}

func summaryFromCounters(summary neo4j.ResultSummary) Summary {
	counters := summary.Counters()
	return Summary{
		NodesCreated:         counters.NodesCreated(),
		RelationshipsCreated: counters.RelationshipsCreated(),
		PropertiesSet:        counters.PropertiesSet(),
		LabelsAdded:          counters.LabelsAdded(),
	}
}

// driverRetryable defers to the driver's transient-error classification
// (connection failures, leader switches, lock contention).
func driverRetryable(err error) bool {
	return neo4j.IsRetryable(err)
}
