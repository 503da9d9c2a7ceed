package database

import (
	"context"
	"fmt"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultConnAttempts = 3

// Postgres wraps the connection pool together with the transactor used for
// multi-statement snapshot writes.
type Postgres struct {
	pool *pgxpool.Pool

	DBGetter   tx.DBGetter
	Transactor *tx.Transactor
}

// Option configures the pool.
type Option func(*pgxpool.Config)

// MaxPoolSize caps the number of pooled connections.
func MaxPoolSize(size int32) Option {
	return func(c *pgxpool.Config) {
		c.MaxConns = size
	}
}

// ConnTimeout sets the connect timeout in seconds.
func ConnTimeout(seconds int) Option {
	return func(c *pgxpool.Config) {
		c.ConnConfig.ConnectTimeout = time.Duration(seconds) * time.Second
	}
}

// HealthCheckPeriod sets the pool health check period in minutes.
func HealthCheckPeriod(minutes int) Option {
	return func(c *pgxpool.Config) {
		c.HealthCheckPeriod = time.Duration(minutes) * time.Minute
	}
}

// New connects to Postgres and prepares the transactor.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	for _, opt := range opts {
		opt(poolConfig)
	}

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= defaultConnAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		if attempt < defaultConnAttempts {
			time.Sleep(time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	transactor, dbGetter := tx.NewTransactorFromPool(pool)

	return &Postgres{
		pool:       pool,
		DBGetter:   dbGetter,
		Transactor: transactor,
	}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
