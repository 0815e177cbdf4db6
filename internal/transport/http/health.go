package httptransport

import (
	"context"
	"net/http"

	"trustgraph/pkg/platform/httputil"
)

// HealthCheck probes one dependency; nil error means healthy.
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// NewHealthHandler builds the readiness endpoint from named dependency
// probes. Any failing probe degrades the response to 503.
func NewHealthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:     "ok",
			Components: make(map[string]string, len(checks)),
		}
		status := http.StatusOK

		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}

		httputil.WriteJSON(w, status, resp)
	}
}
