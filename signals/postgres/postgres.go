// Package postgres implements a readiness signal over a pgx connection
// pool, grounded on the teacher's internal/clients/postgres.go
// PostgresClient: the same connection-string assembly, pool sizing, and
// gobreaker wrapping, repurposed from a one-shot bootstrap check into a
// reusable readiness signal.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the Postgres target a signal should probe.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32

	// Schema, if non-empty, is additionally validated to exist.
	Schema string
}

// New builds a readiness signal named name that pings (and, if
// cfg.Schema is set, validates a schema against) a Postgres instance,
// under the given timeout and retry policy. The pool is created lazily
// on the first Wait call, matching the deferred-factory pattern of
// registry.Deferred.
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	var pool *pgxpool.Pool

	probe := func(ctx context.Context) error {
		if pool == nil {
			connString := fmt.Sprintf(
				"postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
			)
			poolCfg, err := pgxpool.ParseConfig(connString)
			if err != nil {
				return fmt.Errorf("parse postgres config: %w", err)
			}
			if cfg.MaxConns > 0 {
				poolCfg.MaxConns = cfg.MaxConns
			}
			if cfg.MinConns > 0 {
				poolCfg.MinConns = cfg.MinConns
			}
			poolCfg.MaxConnLifetime = time.Hour
			poolCfg.MaxConnIdleTime = 30 * time.Minute

			p, err := pgxpool.NewWithConfig(ctx, poolCfg)
			if err != nil {
				return fmt.Errorf("create postgres pool: %w", err)
			}
			pool = p
		}

		_, err := cb.Execute(func() (interface{}, error) {
			if err := pool.Ping(ctx); err != nil {
				return nil, fmt.Errorf("ping postgres: %w", err)
			}
			if cfg.Schema != "" {
				var exists bool
				query := "SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)"
				if err := pool.QueryRow(ctx, query, cfg.Schema).Scan(&exists); err != nil {
					return nil, fmt.Errorf("query schema: %w", err)
				}
				if !exists {
					return nil, fmt.Errorf("schema %s does not exist", cfg.Schema)
				}
			}
			return nil, nil
		})
		return err
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
