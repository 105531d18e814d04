// Package http implements an HTTP-GET readiness signal, grounded on the
// teacher's health.Checker.probeHTTP (internal/health/checker.go).
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arc-framework/readiness/retry"
	"github.com/arc-framework/readiness/signal"
)

// Config describes the HTTP endpoint a signal should probe.
type Config struct {
	URL string
	// ExpectStatusMin/Max bound the acceptable response status range.
	// Zero values default to the [200, 300) range the teacher uses.
	ExpectStatusMin int
	ExpectStatusMax int
}

// New builds a readiness signal named name that issues an HTTP GET
// against cfg.URL and requires a response status in range.
func New(name string, timeout time.Duration, policy retry.Policy, cfg Config) signal.Signal {
	min, max := cfg.ExpectStatusMin, cfg.ExpectStatusMax
	if min == 0 && max == 0 {
		min, max = 200, 300
	}

	client := &http.Client{}

	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < min || resp.StatusCode >= max {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil
	}

	return signal.NewProbe(name, timeout, policy, probe)
}
