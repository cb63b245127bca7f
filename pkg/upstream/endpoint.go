package upstream

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Endpoint identifies a reachable backend process. It is an immutable
// value: once created it is never modified, only registered into or
// removed from a Pool.
type Endpoint struct {
	// Name is a human-readable identifier (e.g., "app-1").
	Name string

	// Host is the network address (hostname or IP).
	Host string

	// Port is the TCP port the backend listens on.
	Port int
}

// Addr returns the host:port form of the endpoint, suitable for dialing.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the base HTTP URL of the endpoint.
func (e Endpoint) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   e.Addr(),
	}
}

// String returns a log-friendly representation.
func (e Endpoint) String() string {
	if e.Name != "" {
		return fmt.Sprintf("%s (%s)", e.Name, e.Addr())
	}
	return e.Addr()
}

// Validate checks that the endpoint is dispatchable.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("endpoint %q: host must not be empty", e.Name)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint %q: invalid port %d", e.Name, e.Port)
	}
	return nil
}
