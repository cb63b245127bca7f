// Package config defines the declarative configuration for the front
// door and its startup sequencing.
//
// Configuration is loaded from a YAML file, overlaid with environment
// variables (DRAWBRIDGE_* always win), defaulted and validated before
// any component is constructed. The route table in particular is checked
// for ambiguity at load time, never at request time.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Routes    []RouteConfig   `yaml:"routes"`
	Static    StaticConfig    `yaml:"static" envPrefix:"STATIC_"`
	Upstreams UpstreamsConfig `yaml:"upstreams" envPrefix:"UPSTREAMS_"`
	Probe     ProbeConfig     `yaml:"probe" envPrefix:"PROBE_"`
	Backend   BackendConfig   `yaml:"backend" envPrefix:"BACKEND_"`
	Audit     AuditConfig     `yaml:"audit" envPrefix:"AUDIT_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ServerConfig configures the front door's HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port the front door binds to.
	ListenAddress string `yaml:"listen_address" env:"LISTEN_ADDRESS"`

	// ReadTimeout bounds reading the request including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// IdleTimeout bounds keep-alive idle connections.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES"`
}

// RouteConfig is one declarative route rule.
type RouteConfig struct {
	// Prefix is the path prefix, starting with "/".
	Prefix string `yaml:"prefix"`

	// Target is "static" or "upstream".
	Target string `yaml:"target"`

	// StripPrefix removes the matched prefix before forwarding.
	StripPrefix bool `yaml:"strip_prefix"`
}

// StaticConfig configures static asset serving.
type StaticConfig struct {
	// Root is the asset root directory.
	Root string `yaml:"root" env:"ROOT"`

	// Index is the fallback document served when no file matches,
	// enabling client-side routing. Relative to Root.
	Index string `yaml:"index" env:"INDEX"`
}

// EndpointConfig is one statically configured backend endpoint.
type EndpointConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UpstreamsConfig configures the upstream pool membership sources.
type UpstreamsConfig struct {
	// Endpoints are registered once the backend gate (if any) is ready.
	Endpoints []EndpointConfig `yaml:"endpoints"`

	// WatchFile, when set, is an endpoints YAML file that is watched
	// for changes; pool membership is reconciled against it.
	WatchFile string `yaml:"watch_file" env:"WATCH_FILE"`

	// WatchDebounce coalesces bursts of file events.
	WatchDebounce time.Duration `yaml:"watch_debounce" env:"WATCH_DEBOUNCE"`
}

// ProbeConfig configures the datastore readiness probe and the gate
// budget it drives.
type ProbeConfig struct {
	// Kind selects the probe: "postgres", "http" or "tcp".
	Kind string `yaml:"kind" env:"KIND"`

	// Address is the host:port of the dependency (tcp kind, and the
	// default for postgres when no DSN is supplied).
	Address string `yaml:"address" env:"ADDRESS"`

	// URL is the health endpoint URL (http kind).
	URL string `yaml:"url" env:"URL"`

	// DSN carries the probe-only datastore credentials. Environment
	// only: credentials never live in the config file.
	DSN string `yaml:"-" env:"DSN,unset"`

	// Interval is the fixed polling interval.
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`

	// Timeout is the per-attempt budget.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// MaxFailures is the number of unsuccessful probes tolerated before
	// the gate declares Failed.
	MaxFailures int `yaml:"max_failures" env:"MAX_FAILURES"`
}

// BackendConfig configures the dependent backend process.
type BackendConfig struct {
	// Command is the backend process argv. Empty means an external
	// supervisor starts the backend (it should use `drawbridge wait`).
	Command []string `yaml:"command"`

	// Env is extra environment (KEY=VALUE) for the backend process.
	Env []string `yaml:"env"`

	// HealthURL, when set, is probed after launch; endpoints are
	// registered into the pool only once the backend reports healthy.
	HealthURL string `yaml:"health_url" env:"HEALTH_URL"`

	// StopGracePeriod is how long the backend gets between SIGTERM and
	// SIGKILL during shutdown.
	StopGracePeriod time.Duration `yaml:"stop_grace_period" env:"STOP_GRACE_PERIOD"`
}

// AuditConfig configures the dispatch/probe audit trail.
type AuditConfig struct {
	// Enabled turns audit recording on.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Path is the SQLite database file. Empty means in-memory records
	// that do not survive a restart.
	Path string `yaml:"path" env:"PATH"`

	// Buffer is the async recorder channel size.
	Buffer int `yaml:"buffer" env:"BUFFER"`

	// RetentionDays is how long records are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days" env:"RETENTION_DAYS"`

	// PruneSchedule is a cron expression for retention pruning.
	PruneSchedule string `yaml:"prune_schedule" env:"PRUNE_SCHEDULE"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`
	AddSource bool   `yaml:"add_source" env:"ADD_SOURCE"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig groups the ambient observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}
