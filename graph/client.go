package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// Config holds the connection and retry settings of a Client.
type Config struct {
	// URI is the Bolt-style address of the graph database
	// (e.g. "neo4j://graph.internal:7687").
	URI string

	// Username and Password authenticate the connection.
	Username string
	Password string

	// Database selects the database to run against. Empty uses the
	// driver's default database.
	Database string

	// MaxConnectionPoolSize caps the connection pool. Default 20.
	MaxConnectionPoolSize int

	// MaxConnectionLifetime bounds how long a pooled connection lives.
	// Default 1800s.
	MaxConnectionLifetime time.Duration

	// ConnectionAcquisitionTimeout bounds the wait for a pooled
	// connection. Default 30s.
	ConnectionAcquisitionTimeout time.Duration

	// RetryCount is the number of attempts per query on transient
	// failures. Default 3.
	RetryCount int

	// RetryDelay is the backoff base: attempt n sleeps RetryDelay * n².
	// Default 2s.
	RetryDelay time.Duration

	// PrimaryKeys maps each node label to the property name(s) forming
	// its primary key. CreateRelation requires an entry for every
	// endpoint label it sees.
	PrimaryKeys map[string][]string

	// Logger receives retry and lifecycle events. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// withDefaults fills in the documented default for every zero-valued knob.
func (c Config) withDefaults() Config {
	if c.MaxConnectionPoolSize == 0 {
		c.MaxConnectionPoolSize = 20
	}
	if c.MaxConnectionLifetime == 0 {
		c.MaxConnectionLifetime = 1800 * time.Second
	}
	if c.ConnectionAcquisitionTimeout == 0 {
		c.ConnectionAcquisitionTimeout = 30 * time.Second
	}
	if c.RetryCount == 0 {
		c.RetryCount = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// executor performs a single attempt of a read or write query and returns
// the rows already normalized into plain Go values. The production executor
// wraps the Neo4j driver; tests inject fakes to exercise the retry policy.
type executor interface {
	ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	WriteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// Client is the low-level graph database connector. It owns a driver
// connection pool and applies one retry policy to every operation.
type Client struct {
	exec        executor
	logger      *slog.Logger
	retryCount  int
	retryDelay  time.Duration
	primaryKeys map[string][]string
}

// NewClient connects to the graph database described by cfg and verifies
// connectivity before returning.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: graph database URI is required", ErrInvalidInput)
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			c.MaxConnectionLifetime = cfg.MaxConnectionLifetime
			c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to graph database at %s: %w", cfg.URI, err)
	}

	return newClient(&boltExecutor{driver: driver, database: cfg.Database}, cfg), nil
}

// newClient wires a Client around an executor. Tests use it to substitute
// fakes for the driver.
func newClient(exec executor, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		exec:        exec,
		logger:      cfg.Logger,
		retryCount:  cfg.RetryCount,
		retryDelay:  cfg.RetryDelay,
		primaryKeys: cfg.PrimaryKeys,
	}
}

// Close releases the underlying connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.exec.Close(ctx)
}

// Run executes a read query inside a fresh session and returns the
// normalized result rows. Transient failures are retried; anything else
// propagates immediately.
func (c *Client) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.withRetry(ctx, "run", func() ([]map[string]any, error) {
		return c.exec.ReadQuery(ctx, cypher, params)
	})
}

// Write executes a mutating query inside a single managed write transaction,
// with the same retry policy as Run. Use it for destructive statements that
// must not partially apply.
func (c *Client) Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.withRetry(ctx, "write", func() ([]map[string]any, error) {
		return c.exec.WriteQuery(ctx, cypher, params)
	})
}

// MergeNode performs the idempotent merge-on-key write for a node inside a
// write transaction: match or create by primary key, overlay every other
// property, attach extra labels. Fails with ErrInvalidInput when the node
// lacks a primary key property.
func (c *Client) MergeNode(ctx context.Context, node Node, primaryLabel string, primaryKeys ...string) error {
	cypher, params, err := BuildMergeNode(node, primaryLabel, primaryKeys...)
	if err != nil {
		return err
	}
	_, err = c.withRetry(ctx, "merge_node", func() ([]map[string]any, error) {
		return c.exec.WriteQuery(ctx, cypher, params)
	})
	return err
}

// CreateRelation merges both endpoints of the relationship by the primary
// keys configured for their labels, then merges the edge with its
// properties, all inside one write transaction. All cross-node relationship
// creation must go through here so endpoint existence and the edge are
// established atomically relative to this client.
func (c *Client) CreateRelation(ctx context.Context, rel Relationship) error {
	cypher, params, err := BuildMergeRelation(rel, c.primaryKeys)
	if err != nil {
		return err
	}
	_, err = c.withRetry(ctx, "create_relation", func() ([]map[string]any, error) {
		return c.exec.WriteQuery(ctx, cypher, params)
	})
	return err
}

// withRetry runs op up to retryCount times, sleeping retryDelay * attempt²
// between transient failures. The final transient failure surfaces
// unchanged; non-transient failures surface on first sight.
func (c *Client) withRetry(ctx context.Context, op string, fn func() ([]map[string]any, error)) ([]map[string]any, error) {
	for attempt := 0; attempt < c.retryCount; attempt++ {
		rows, err := fn()
		if err == nil {
			return rows, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		if attempt == c.retryCount-1 {
			c.logger.Error("all graph attempts failed",
				"op", op,
				"attempts", c.retryCount,
				"error", err,
			)
			return nil, err
		}

		delay := c.retryDelay * time.Duration(attempt*attempt)
		c.logger.Warn("transient graph failure, retrying",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, ErrUnreachable
}

// boltExecutor is the production executor backed by the Neo4j driver. Each
// query runs in its own session; writes run inside a managed write
// transaction.
type boltExecutor struct {
	driver   neo4j.DriverWithContext
	database string
}

func (e *boltExecutor) ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeRecords(records), nil
}

func (e *boltExecutor) WriteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.database})
	defer session.Close(ctx)

	rows, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return normalizeRecords(records), nil
	})
	if err != nil {
		return nil, err
	}
	return rows.([]map[string]any), nil
}

func (e *boltExecutor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

func normalizeRecords(records []*neo4j.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for k, v := range record.AsMap() {
			row[k] = NormalizeValue(v)
		}
		rows = append(rows, row)
	}
	return rows
}
