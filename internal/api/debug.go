package api

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planscore/internal/buildinfo"
	"planscore/internal/metrics"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !pr.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":               os.Getenv("PORT"),
			"AUTH_MODE":          os.Getenv("AUTH_MODE"),
			"RATE_RPS":           os.Getenv("RATE_RPS"),
			"RATE_BURST":         os.Getenv("RATE_BURST"),
			"RESCHEDULE_WORKERS": s.Workers,
			"SCORING_CONFIG":     os.Getenv("SCORING_CONFIG"),
			"HAS_DATABASE_URL":   os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":      os.Getenv("REDIS_URL") != "",
			"HAS_WEBHOOK_URL":    s.Pub.Enabled(),
		},
		"scoring": map[string]any{
			"activities": len(s.BaseConfig.Activities),
			"modes":      len(s.BaseConfig.Modes),
		},
	}
	writeJSON(w, http.StatusOK, info)
}

// MetricsHandler exposes the API registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
