// Package grpc implements a gRPC health-check readiness signal using the
// standard grpc.health.v1 service. The teacher's probeGRPC
// (internal/health/checker.go) falls back to a bare TCP dial with a
// comment noting the real health service "would" be implemented in
// production; this package is that follow-through, using
// google.golang.org/grpc's own health client instead of a TCP stand-in.
package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the gRPC target a signal should probe.
type Config struct {
	Address string
	// Service is the service name passed to the health check, "" meaning
	// the server's overall status.
	Service string
}

// New builds a readiness signal named name that calls the standard
// gRPC health-checking protocol's Check RPC against cfg.Address.
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	var conn *grpc.ClientConn

	probe := func(ctx context.Context) error {
		if conn == nil {
			c, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial grpc target: %w", err)
			}
			conn = c
		}

		client := healthpb.NewHealthClient(conn)
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: cfg.Service})
		if err != nil {
			return fmt.Errorf("grpc health check failed: %w", err)
		}
		if resp.Status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("grpc service %q reported status %s", cfg.Service, resp.Status)
		}
		return nil
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
