// Package probe implements lightweight readiness probes and the periodic
// runner that drives them.
//
// A probe answers one question: can the dependency correctly service
// requests right now? Accepting a TCP connection is not the same thing,
// which is why the Postgres probe issues a protocol-level ping instead of
// a bare dial.
//
// Probes never propagate failures as crashes. Every failure mode -
// timeout, refused connection, authentication error - comes back as an
// ordinary error result for the sink to count.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Prober performs a single readiness check against a dependency.
type Prober interface {
	// Probe returns nil if the dependency is ready, or an error
	// describing why it is not. Implementations must honor ctx and
	// never block past its deadline.
	Probe(ctx context.Context) error

	// Name identifies the probe target in logs and metrics.
	Name() string
}

// Sink receives probe results. A nil error is a successful probe.
type Sink interface {
	Report(err error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(err error)

// Report implements Sink.
func (f SinkFunc) Report(err error) { f(err) }

// HTTPProbe checks readiness by issuing a GET against a health endpoint.
// Any 2xx response is ready; everything else is not.
type HTTPProbe struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPProbe creates a probe for the given health endpoint URL.
// If client is nil, a dedicated client with no redirect-following and no
// global timeout is used (the per-attempt timeout comes from ctx).
func NewHTTPProbe(name, url string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &HTTPProbe{name: name, url: url, client: client}
}

// Probe implements Prober.
func (p *HTTPProbe) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: unexpected status %d", p.url, resp.StatusCode)
	}
	return nil
}

// Name implements Prober.
func (p *HTTPProbe) Name() string { return p.name }

// TCPProbe checks readiness by dialing the target address. It only
// proves the dependency is listening, so prefer a protocol-level probe
// where one exists.
type TCPProbe struct {
	name string
	addr string
}

// NewTCPProbe creates a probe that dials addr (host:port).
func NewTCPProbe(name, addr string) *TCPProbe {
	return &TCPProbe{name: name, addr: addr}
}

// Probe implements Prober.
func (p *TCPProbe) Probe(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.addr, err)
	}
	return conn.Close()
}

// Name implements Prober.
func (p *TCPProbe) Name() string { return p.name }

// Result is one observed probe outcome, as delivered to observers.
type Result struct {
	Probe   string
	Err     error
	Latency time.Duration
}

// Ok reports whether the probe succeeded.
func (r Result) Ok() bool { return r.Err == nil }
