// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx pool behind the component catalogue, the
// publish transaction and the registry resolver.
package postgres

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
)

const (
	connectTimeout = 5 * time.Second
	pingTimeout    = 2 * time.Second
)

// Options sizes the pool. Zero values fall back to the pgxpool defaults.
type Options struct {
	MaxConns int32
	MinConns int32
}

// sessionSettings run on every new physical connection. Statements may not
// outlive the HTTP request, and unqualified names resolve in the gallery
// schema before users.
func sessionSettings() []string {
	return []string{
		fmt.Sprintf("SET statement_timeout = '%ds'", int(constants.GlobalRequestTimeout.Seconds())),
		fmt.Sprintf("SET search_path = %s, %s, public", constants.SchemaGallery, constants.SchemaUsers),
	}
}

/*
NewPool connects to dsn and pings once before returning.

Parameters:
  - context: context.Context (bounds the initial connect and ping)
  - dsn: string (postgres:// URL or libpq key/value string)
  - options: Options
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool
  - error
*/
func NewPool(context stdctx.Context, dsn string, options Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	if options.MaxConns > 0 {
		poolConfig.MaxConns = options.MaxConns
	}
	if options.MinConns > 0 {
		poolConfig.MinConns = options.MinConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.ConnConfig.RuntimeParams["application_name"] = constants.AppName

	poolConfig.AfterConnect = func(ctx stdctx.Context, connection *pgx.Conn) error {
		for _, statement := range sessionSettings() {
			if _, err := connection.Exec(ctx, statement); err != nil {
				return fmt.Errorf("postgres: %s: %w", statement, err)
			}
		}
		return nil
	}

	connectCtx, cancel := stdctx.WithTimeout(context, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := Ping(context, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)
	return pool, nil
}

// Ping backs the readiness probe.
func Ping(context stdctx.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
