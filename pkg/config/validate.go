package config

import (
	"fmt"
	"time"

	"arcadehall/drawbridge/pkg/router"
	"arcadehall/drawbridge/pkg/upstream"
)

// Validate checks the configuration for errors that must be caught
// before any component starts. It builds the route table once so
// ambiguity is a load-time failure, never a per-request surprise.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address must not be empty")
	}
	if cfg.Server.ShutdownTimeout < time.Second {
		return fmt.Errorf("server.shutdown_timeout %s is too small (minimum 1s)", cfg.Server.ShutdownTimeout)
	}

	if _, err := RouteRules(cfg); err != nil {
		return err
	}

	for _, e := range cfg.Upstreams.Endpoints {
		ep := upstream.Endpoint{Name: e.Name, Host: e.Host, Port: e.Port}
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("upstreams: %w", err)
		}
	}

	switch cfg.Probe.Kind {
	case "postgres":
		// The DSN arrives via environment and may legitimately be
		// absent at validate time; Address is the fallback.
		if cfg.Probe.DSN == "" && cfg.Probe.Address == "" {
			return fmt.Errorf("probe: postgres probe needs DRAWBRIDGE_PROBE_DSN or probe.address")
		}
	case "http":
		if cfg.Probe.URL == "" {
			return fmt.Errorf("probe: http probe needs probe.url")
		}
	case "tcp":
		if cfg.Probe.Address == "" {
			return fmt.Errorf("probe: tcp probe needs probe.address")
		}
	default:
		return fmt.Errorf("probe: unknown kind %q (want postgres, http or tcp)", cfg.Probe.Kind)
	}

	if cfg.Probe.Interval <= 0 {
		return fmt.Errorf("probe.interval must be positive")
	}
	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if cfg.Probe.Timeout > cfg.Probe.Interval {
		return fmt.Errorf("probe.timeout %s must not exceed probe.interval %s",
			cfg.Probe.Timeout, cfg.Probe.Interval)
	}
	if cfg.Probe.MaxFailures < 0 {
		return fmt.Errorf("probe.max_failures must not be negative")
	}

	if cfg.Audit.Enabled && cfg.Audit.Buffer <= 0 {
		return fmt.Errorf("audit.buffer must be positive")
	}

	return nil
}

// RouteRules converts the declarative route list into a validated,
// ordered route table's rules.
func RouteRules(cfg *Config) ([]router.Rule, error) {
	rules := make([]router.Rule, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		kind, err := router.ParseTargetKind(rc.Target)
		if err != nil {
			return nil, fmt.Errorf("routes: prefix %q: %w", rc.Prefix, err)
		}
		rules = append(rules, router.Rule{
			Prefix:      rc.Prefix,
			Kind:        kind,
			StripPrefix: rc.StripPrefix,
		})
	}
	if _, err := router.NewTable(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Endpoints converts the statically configured endpoints.
func Endpoints(cfg *Config) []upstream.Endpoint {
	out := make([]upstream.Endpoint, 0, len(cfg.Upstreams.Endpoints))
	for _, e := range cfg.Upstreams.Endpoints {
		out = append(out, upstream.Endpoint{Name: e.Name, Host: e.Host, Port: e.Port})
	}
	return out
}

// ProbeDSN returns the datastore DSN, synthesizing one from the address
// when only probe.address is configured.
func ProbeDSN(cfg *Config) string {
	if cfg.Probe.DSN != "" {
		return cfg.Probe.DSN
	}
	return "postgres://" + cfg.Probe.Address
}
