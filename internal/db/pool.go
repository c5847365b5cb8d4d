package db

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type NewDBPoolParams struct {
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	MaxConns       int32
	TracingEnabled bool
	// PingAttempts > 0 waits for the database to accept connections before returning.
	PingAttempts uint64
}

func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	user := params.DBUser
	if user == "" {
		user = "postgres"
	}
	connString := fmt.Sprintf(
		"postgres://%s@%s/%s",
		user, net.JoinHostPort(params.DBHost, params.DBPort), params.DBName,
	)
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if params.MaxConns > 0 {
		poolConfig.MaxConns = params.MaxConns
	}

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if params.PingAttempts > 0 {
		if err := waitForDB(ctx, pool, params.PingAttempts); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, attempts uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.RetryNotify(
		func() error {
			return pool.Ping(ctx)
		},
		backoff.WithContext(backoff.WithMaxRetries(b, attempts), ctx),
		func(err error, next time.Duration) {
			log.Warnf("postgres not reachable yet, retrying in %s: %s", next, err)
		},
	)
}
