// Package nats implements a readiness signal over a NATS JetStream
// connection, grounded on the teacher's internal/clients/nats.go
// NATSClient connection options and gobreaker wrapping.
package nats

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the NATS target a signal should probe.
type Config struct {
	URL string
	// Stream, if non-empty, is additionally checked for existence.
	Stream string
}

// New builds a readiness signal named name that connects to NATS (and,
// if cfg.Stream is set, confirms a JetStream stream exists).
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	var conn *natsgo.Conn
	var js jetstream.JetStream

	probe := func(ctx context.Context) error {
		if conn == nil {
			c, err := natsgo.Connect(cfg.URL,
				natsgo.Name(name),
				natsgo.Timeout(10*time.Second),
				natsgo.ReconnectWait(2*time.Second),
				natsgo.MaxReconnects(5),
			)
			if err != nil {
				return fmt.Errorf("nats connect failed: %w", err)
			}
			conn = c

			j, err := jetstream.New(conn)
			if err != nil {
				conn.Close()
				conn = nil
				return fmt.Errorf("jetstream context failed: %w", err)
			}
			js = j
		}

		_, err := cb.Execute(func() (interface{}, error) {
			if !conn.IsConnected() {
				return nil, fmt.Errorf("nats connection not ready")
			}
			if cfg.Stream != "" {
				if _, err := js.Stream(ctx, cfg.Stream); err != nil {
					return nil, fmt.Errorf("stream %s not available: %w", cfg.Stream, err)
				}
			}
			return nil, nil
		})
		return err
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
