package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// HealthCheck is the health check handler. With no probes it always answers ok.
type HealthCheck struct {
	Probes  map[string]Probe
	Timeout time.Duration
}

// Handler is used to control the flow of GET /health endpoint
func (hc HealthCheck) Handler(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if IsHealthCheckRequest(r) {
			hc.ServeHTTP(w, r)

			return
		}

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// ServeHTTP runs every probe and answers 503 naming a failing one.
func (hc HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if hc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.Timeout)
		defer cancel()
	}

	for name, probe := range hc.Probes {
		if err := probe(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "%s: %v\n", name, err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// IsHealthCheckRequest is used to check if the request is a health check request
func IsHealthCheckRequest(r *http.Request) bool {
	return r.Method == "GET" && r.URL.Path == "/health"
}
