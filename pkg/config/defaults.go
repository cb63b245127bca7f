package config

import "time"

// ApplyDefaults fills in default values for any field left unset.
// Explicit zero values the operator cares about (e.g. MaxFailures: 0)
// survive only where a zero is meaningful; durations and sizes are
// always defaulted.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MiB
	}

	if len(cfg.Routes) == 0 {
		cfg.Routes = []RouteConfig{
			{Prefix: "/api", Target: "upstream", StripPrefix: true},
			{Prefix: "/", Target: "static"},
		}
	}

	if cfg.Static.Root == "" {
		cfg.Static.Root = "public"
	}
	if cfg.Static.Index == "" {
		cfg.Static.Index = "index.html"
	}

	if cfg.Upstreams.WatchDebounce == 0 {
		cfg.Upstreams.WatchDebounce = 100 * time.Millisecond
	}

	if cfg.Probe.Kind == "" {
		cfg.Probe.Kind = "postgres"
	}
	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = 2 * time.Second
	}
	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = time.Second
	}
	if cfg.Probe.MaxFailures == 0 {
		cfg.Probe.MaxFailures = 30
	}

	if cfg.Backend.StopGracePeriod == 0 {
		cfg.Backend.StopGracePeriod = 10 * time.Second
	}

	if cfg.Audit.Buffer == 0 {
		cfg.Audit.Buffer = 1000
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 30
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "drawbridge"
	}
}
