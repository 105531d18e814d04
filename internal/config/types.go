package config

import "time"

// Config is the root configuration for a readinessd host process,
// adapted from the teacher's raymond bootstrap Config: the same
// Server/Telemetry split, with BootstrapConfig generalized into Run
// (global policy and timeouts) plus the per-stage Signals this domain
// actually checks.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" validate:"required"`
	Run       RunConfig       `mapstructure:"run" validate:"required"`
}

// ServerConfig contains the reference httpadapter HTTP server's
// configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1024,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"required"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name" validate:"required"`
	LogLevel     string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RunConfig contains coordinator-level policy and the declared signals.
type RunConfig struct {
	Policy                 string         `mapstructure:"policy" validate:"required,oneof=fail_fast best_effort"`
	GlobalTimeout          time.Duration  `mapstructure:"global_timeout" validate:"required"`
	CancelOnGlobalTimeout  bool           `mapstructure:"cancel_on_global_timeout"`
	ExecutionMode          string         `mapstructure:"execution_mode" validate:"required,oneof=parallel sequential dependency_aware"`
	MaxDegreeOfParallelism int            `mapstructure:"max_degree_of_parallelism" validate:"min=0"`
	RetryMaxAttempts       int            `mapstructure:"retry_max_attempts" validate:"required,min=1,max=10"`
	RetryInitialDelay      time.Duration  `mapstructure:"retry_initial_delay" validate:"required"`
	Signals                []SignalConfig `mapstructure:"signals" validate:"required,dive"`
}

// SignalConfig declares one readiness signal to register.
type SignalConfig struct {
	Name    string        `mapstructure:"name" validate:"required"`
	Type    string        `mapstructure:"type" validate:"required,oneof=postgres redis nats pulsar http grpc"`
	Stage   int           `mapstructure:"stage"`
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	DependsOn []string `mapstructure:"depends_on"`

	Postgres PostgresSignalConfig `mapstructure:"postgres"`
	Redis    RedisSignalConfig    `mapstructure:"redis"`
	NATS     NATSSignalConfig     `mapstructure:"nats"`
	Pulsar   PulsarSignalConfig   `mapstructure:"pulsar"`
	HTTP     HTTPSignalConfig     `mapstructure:"http"`
	GRPC     GRPCSignalConfig     `mapstructure:"grpc"`
}

// PostgresSignalConfig configures a signals/postgres probe.
type PostgresSignalConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Schema   string `mapstructure:"schema"`
}

// RedisSignalConfig configures a signals/redis probe.
type RedisSignalConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSSignalConfig configures a signals/nats probe.
type NATSSignalConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// PulsarSignalConfig configures a signals/pulsar probe.
type PulsarSignalConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Topic      string `mapstructure:"topic"`
}

// HTTPSignalConfig configures a signals/http probe.
type HTTPSignalConfig struct {
	URL             string `mapstructure:"url"`
	ExpectStatusMin int    `mapstructure:"expect_status_min"`
	ExpectStatusMax int    `mapstructure:"expect_status_max"`
}

// GRPCSignalConfig configures a signals/grpc probe.
type GRPCSignalConfig struct {
	Address string `mapstructure:"address"`
	Service string `mapstructure:"service"`
}
