package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"bharatconnect/pkg/config"
)

// DefaultCassandraQueryTimeout is the default timeout for Cassandra queries
const DefaultCassandraQueryTimeout = 5 * time.Second

// CassandraDB wraps the gocql Session with context support
type CassandraDB struct {
	Session *gocql.Session
}

// NewCassandraDB creates a session from cfg
func NewCassandraDB(cfg config.CassandraConfig) (*CassandraDB, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.LocalQuorum

	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	} else {
		cluster.Timeout = DefaultCassandraQueryTimeout
	}

	cluster.NumConns = 2
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        time.Second,
		Max:        10 * time.Second,
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}
	return &CassandraDB{Session: session}, nil
}

// Close closes the Cassandra session
func (c *CassandraDB) Close() {
	if c.Session != nil {
		c.Session.Close()
	}
}

// Ping tests the connection
func (c *CassandraDB) Ping(ctx context.Context) error {
	if err := c.QueryWithContext(ctx, "SELECT now() FROM system.local").Exec(); err != nil {
		return fmt.Errorf("cassandra ping failed: %w", err)
	}
	return nil
}

// QueryWithContext builds a query bound to ctx. Without a deadline the
// cluster timeout applies.
func (c *CassandraDB) QueryWithContext(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return c.Session.Query(stmt, values...).WithContext(ctx)
}

// ExecWithContext executes a query without returning results
func (c *CassandraDB) ExecWithContext(ctx context.Context, stmt string, values ...interface{}) error {
	return c.QueryWithContext(ctx, stmt, values...).Exec()
}
