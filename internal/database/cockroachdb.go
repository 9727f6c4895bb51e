package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bharatconnect/pkg/config"
	"bharatconnect/pkg/logger"
)

// DBConfig contains pool configuration
type DBConfig struct {
	MaxOpenConns      int
	MinConns          int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultDBConfig returns default pool configuration
func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		MaxOpenConns:      25,               // Maximum number of open connections
		MinConns:          2,                // Minimum idle connections
		ConnMaxLifetime:   1 * time.Hour,    // Maximum connection lifetime
		ConnMaxIdleTime:   5 * time.Minute,  // Maximum idle time before closing
		HealthCheckPeriod: 30 * time.Second, // Health check interval
	}
}

// DB wraps the pgxpool.Pool
type DB struct {
	Pool *pgxpool.Pool
}

// ConnString builds a postgresql:// URL for CockroachDB
func ConnString(cfg config.CockroachConfig) string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewDB creates a connection pool and pings the cluster
func NewDB(ctx context.Context, cfg config.CockroachConfig, dbConfig *DBConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	if dbConfig == nil {
		dbConfig = DefaultDBConfig()
	}

	poolConfig.MaxConns = int32(dbConfig.MaxOpenConns)
	poolConfig.MinConns = int32(dbConfig.MinConns)
	poolConfig.MaxConnLifetime = dbConfig.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = dbConfig.ConnMaxIdleTime
	poolConfig.HealthCheckPeriod = dbConfig.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.Pool.Close()
	logger.Info("Database connection pool closed")
	return nil
}

// Ping tests the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}
