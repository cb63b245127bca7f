package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"arcadehall/drawbridge/pkg/router"
	"arcadehall/drawbridge/pkg/upstream"
)

// DispatchObserver is notified of every upstream dispatch, successful or
// not. Used by the audit recorder.
type DispatchObserver func(endpoint upstream.Endpoint, path string, status int, latency time.Duration)

// Forwarder dispatches requests to the upstream pool.
//
// Header handling is append-only: the forwarder sets the forwarding
// headers (Host, X-Forwarded-For, X-Real-IP) and otherwise leaves the
// client's headers untouched. A failed dispatch is answered with a
// gateway error, never retried against another pool member.
type Forwarder struct {
	pool      *upstream.Pool
	transport http.RoundTripper
	logger    *slog.Logger
	observer  DispatchObserver
}

// NewForwarder creates a forwarder backed by the given pool. A nil
// transport uses http.DefaultTransport.
func NewForwarder(pool *upstream.Pool, transport http.RoundTripper, logger *slog.Logger) *Forwarder {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		pool:      pool,
		transport: transport,
		logger:    logger.With("component", "proxy.forwarder"),
	}
}

// OnDispatch registers a dispatch observer. Must be called before the
// forwarder serves traffic.
func (f *Forwarder) OnDispatch(fn DispatchObserver) {
	f.observer = fn
}

// Forward proxies the request to the next pool member under the matched
// rule. An empty pool returns 503; a dispatch failure returns 502.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, rule router.Rule) {
	endpoint, err := f.pool.Next()
	if err != nil {
		if errors.Is(err, upstream.ErrPoolEmpty) {
			f.logger.Warn("no upstream available",
				"path", r.URL.Path,
				"method", r.Method,
			)
			writeError(w, http.StatusServiceUnavailable, "no backend available")
			return
		}
		writeError(w, http.StatusInternalServerError, "upstream selection failed")
		return
	}

	target := endpoint.URL()
	outPath := router.StripPath(r.URL.Path, rule)
	start := time.Now()

	// The recorder wrapper sees the status the upstream produced (or
	// the gateway error the ErrorHandler wrote).
	rw := newStatusRecorder(w)

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = outPath
			pr.Out.URL.RawPath = ""

			// The backend sees the host the client asked for, plus the
			// real originating address.
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
			pr.Out.Header.Set("X-Real-IP", clientIP(pr.In))
		},
		Transport: f.transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				// Client went away mid-dispatch; the upstream attempt
				// is abandoned, there is no one to answer.
				f.logger.Debug("client disconnected during dispatch",
					"endpoint", endpoint.String(),
					"path", outPath,
				)
				return
			}
			f.logger.Error("upstream dispatch failed",
				"endpoint", endpoint.String(),
				"path", outPath,
				"error", err,
			)
			writeError(w, http.StatusBadGateway, "backend request failed")
		},
	}

	rp.ServeHTTP(rw, r)

	if f.observer != nil {
		f.observer(endpoint, outPath, rw.status, time.Since(start))
	}
}

// clientIP extracts the originating address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response status for observers.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.written {
		rw.status = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Flush forwards flushes so streamed upstream responses are not
// buffered to death.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
