// Command readinessd is the reference host binary for the readiness
// library: it loads configuration, builds a registry of signals from
// it, drives a Coordinator to a terminal aggregate, and serves the
// result over HTTP until told to stop.
//
// Process composition uses oklog/run, a dependency the teacher already
// requires but never exercises; this binary gives it the job it is
// built for: running the coordinator's one-shot WaitAll and the HTTP
// server as two actors in the same group, so a failure or signal in
// either one brings both down together instead of needing hand-rolled
// goroutine+channel plumbing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"

	"github.com/arc-framework/readiness/aggregate"
	"github.com/arc-framework/readiness/coordinator"
	"github.com/arc-framework/readiness/httpadapter"
	"github.com/arc-framework/readiness/internal/config"
	"github.com/arc-framework/readiness/internal/middleware"
	"github.com/arc-framework/readiness/registry"
	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/scope"
	"github.com/arc-framework/readiness/signal"
	"github.com/arc-framework/readiness/signals/grpc"
	httpsignal "github.com/arc-framework/readiness/signals/http"
	"github.com/arc-framework/readiness/signals/nats"
	"github.com/arc-framework/readiness/signals/postgres"
	"github.com/arc-framework/readiness/signals/pulsar"
	"github.com/arc-framework/readiness/signals/redis"
	"github.com/arc-framework/readiness/telemetry"
)

func main() {
	configPath := os.Getenv("READINESSD_CONFIG")

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.OTLPInsecure, cfg.Telemetry.ServiceName, cfg.Telemetry.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init telemetry:", err)
		os.Exit(1)
	}
	logger := provider.Logger()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	sink, err := telemetry.NewSink(provider.Meter())
	if err != nil {
		logger.Error("init metrics sink", "error", err)
		os.Exit(1)
	}

	reg := buildRegistry(cfg)

	root := scope.NewRoot(ctx, "readinessd")

	policy := aggregate.FailFast
	if cfg.Run.Policy == "best_effort" {
		policy = aggregate.BestEffort
	}
	mode := registry.Parallel
	switch cfg.Run.ExecutionMode {
	case "sequential":
		mode = registry.Sequential
	case "dependency_aware":
		mode = registry.DependencyAware
	}

	coord := coordinator.New(reg, coordinator.IgnitionOptions{
		Policy:                 policy,
		GlobalTimeout:          cfg.Run.GlobalTimeout,
		CancelOnGlobalTimeout:  cfg.Run.CancelOnGlobalTimeout,
		ExecutionModeDefault:   mode,
		MaxDegreeOfParallelism: cfg.Run.MaxDegreeOfParallelism,
		MetricsSink:            sink,
		Logger:                 logger,
	}, root)

	handler := httpadapter.NewHandler(coord)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	handler.RegisterRoutes(router, cfg.Telemetry.ServiceName)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var g run.Group

	// Actor: the coordinator's one-shot readiness run.
	{
		runCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			if _, err := coord.WaitAll(runCtx, nil); err != nil {
				return err
			}
			// A run without error keeps the group, and so the HTTP
			// server, up until the process is told to stop.
			<-runCtx.Done()
			return nil
		}, func(error) {
			cancel()
		})
	}

	// Actor: the HTTP server exposing live/terminal results.
	{
		g.Add(func() error {
			logger.Info("readinessd http server listening", "port", cfg.Server.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		})
	}

	// Actor: process-level interrupt handling.
	{
		g.Add(func() error {
			<-ctx.Done()
			return ctx.Err()
		}, func(error) {
			stop()
		})
	}

	if err := g.Run(); err != nil {
		logger.Warn("readinessd exiting", "reason", err)
	}
}

// buildRegistry translates configuration into a frozen registry of
// deferred signal factories, grouped by stage, with dependency edges for
// DependencyAware stages.
func buildRegistry(cfg *config.Config) *registry.Registry {
	reg := registry.New()

	retryPolicy := retry.Policy{
		MaxRetries:   cfg.Run.RetryMaxAttempts,
		InitialDelay: cfg.Run.RetryInitialDelay,
	}

	for _, s := range cfg.Run.Signals {
		reg.AddFactory(buildSignalFactory(s, retryPolicy))
		for _, dep := range s.DependsOn {
			reg.AddDependency(s.Name, dep)
		}
	}

	return reg
}

// buildSignalFactory maps one declared signal configuration to a
// registry.Factory that constructs the matching signals/* leaf.
func buildSignalFactory(s config.SignalConfig, policy retry.Policy) registry.Factory {
	return registry.Deferred(s.Name, int64(s.Timeout), s.Stage, func(registry.Services) (signal.Signal, error) {
		switch s.Type {
		case "postgres":
			return postgres.New(s.Name, s.Timeout, policy, postgres.Config{
				Host:     s.Postgres.Host,
				Port:     s.Postgres.Port,
				User:     s.Postgres.User,
				Password: s.Postgres.Password,
				Database: s.Postgres.Database,
				SSLMode:  s.Postgres.SSLMode,
				MaxConns: s.Postgres.MaxConns,
				MinConns: s.Postgres.MinConns,
				Schema:   s.Postgres.Schema,
			}), nil
		case "redis":
			return redis.New(s.Name, s.Timeout, policy, redis.Config{
				Host:     s.Redis.Host,
				Port:     s.Redis.Port,
				Password: s.Redis.Password,
				DB:       s.Redis.DB,
			}), nil
		case "nats":
			return nats.New(s.Name, s.Timeout, policy, nats.Config{
				URL:    s.NATS.URL,
				Stream: s.NATS.Stream,
			}), nil
		case "pulsar":
			return pulsar.New(s.Name, s.Timeout, policy, pulsar.Config{
				ServiceURL: s.Pulsar.ServiceURL,
				Topic:      s.Pulsar.Topic,
			}), nil
		case "http":
			return httpsignal.New(s.Name, s.Timeout, policy, httpsignal.Config{
				URL:             s.HTTP.URL,
				ExpectStatusMin: s.HTTP.ExpectStatusMin,
				ExpectStatusMax: s.HTTP.ExpectStatusMax,
			}), nil
		case "grpc":
			return grpc.New(s.Name, s.Timeout, policy, grpc.Config{
				Address: s.GRPC.Address,
				Service: s.GRPC.Service,
			}), nil
		default:
			return nil, fmt.Errorf("unknown signal type %q for %q", s.Type, s.Name)
		}
	})
}
