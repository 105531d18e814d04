// Package config loads the reference readinessd host binary's
// configuration, adapted from the teacher's internal/config/config.go:
// the same viper-defaults-plus-env-override-plus-validator.v10 pipeline,
// with setDefaults narrowed to the readiness domain's Run/Server/
// Telemetry sections.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// Environment variables take precedence and use the format: SECTION_KEY
// (e.g. SERVER_PORT).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures sensible defaults for a readinessd process.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "arc-widow:4317")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "arc-readinessd")
	v.SetDefault("telemetry.log_level", "info")

	v.SetDefault("run.policy", "fail_fast")
	v.SetDefault("run.global_timeout", 5*time.Minute)
	v.SetDefault("run.cancel_on_global_timeout", true)
	v.SetDefault("run.execution_mode", "parallel")
	v.SetDefault("run.max_degree_of_parallelism", 0)
	v.SetDefault("run.retry_max_attempts", 5)
	v.SetDefault("run.retry_initial_delay", 2*time.Second)
}
