// Package redis implements a readiness signal over a go-redis client,
// grounded on the teacher's internal/clients/redis.go RedisClient: same
// option shape and gobreaker wrapping, narrowed to the Ping the signal
// contract needs.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the Redis target a signal should probe.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// New builds a readiness signal named name that pings a Redis instance.
// The client is created lazily on the first Wait call.
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	var client *goredis.Client

	probe := func(ctx context.Context) error {
		if client == nil {
			client = goredis.NewClient(&goredis.Options{
				Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				Password:     cfg.Password,
				DB:           cfg.DB,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				PoolSize:     10,
				MinIdleConns: 2,
			})
		}

		_, err := cb.Execute(func() (interface{}, error) {
			return nil, client.Ping(ctx).Err()
		})
		if err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
