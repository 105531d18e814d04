// Package pulsar implements a readiness signal over an Apache Pulsar
// client, grounded on the teacher's internal/clients/pulsar.go
// PulsarClient: topic readiness is verified the same way, by creating
// and immediately closing a producer (Pulsar auto-creates topics), since
// admin-level inspection would require the separate HTTP admin API.
package pulsar

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/sony/gobreaker"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the Pulsar target a signal should probe.
type Config struct {
	ServiceURL string
	// Topic, if non-empty, is verified by creating and closing a producer.
	Topic string
}

// New builds a readiness signal named name that connects to Pulsar and,
// if cfg.Topic is set, verifies the topic is producible.
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	var client pulsar.Client

	probe := func(ctx context.Context) error {
		if client == nil {
			serviceURL := cfg.ServiceURL
			if serviceURL == "" {
				return fmt.Errorf("pulsar service URL not configured")
			}
			c, err := pulsar.NewClient(pulsar.ClientOptions{
				URL:               serviceURL,
				OperationTimeout:  30 * time.Second,
				ConnectionTimeout: 10 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("pulsar client creation failed: %w", err)
			}
			client = c
		}

		_, err := cb.Execute(func() (interface{}, error) {
			if cfg.Topic == "" {
				return nil, nil
			}
			producer, err := client.CreateProducer(pulsar.ProducerOptions{
				Topic: cfg.Topic,
			})
			if err != nil {
				return nil, fmt.Errorf("create producer for topic %s: %w", cfg.Topic, err)
			}
			producer.Close()
			return nil, nil
		})
		return err
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
