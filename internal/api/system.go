package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/sporehut/sporehut-core/internal/automation"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// handleHealth reports "ok" when every configured dependency is healthy and
// "degraded" otherwise. The device owner itself is probed with a snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  map[string]string{},
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if _, err := s.client.GetDeviceConfigs(ctx); err != nil {
		resp.Checks["controller"] = err.Error()
		resp.Status = "degraded"
	} else {
		resp.Checks["controller"] = "ok"
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleListTriggers returns the state of every automation trigger.
func (s *Server) handleListTriggers(w http.ResponseWriter, _ *http.Request) {
	triggers := []automation.Status{}
	if s.triggers != nil {
		triggers = s.triggers.Status()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"triggers": triggers,
		"count":    len(triggers),
	})
}

// handleEnvironment returns the latest sensor reading.
func (s *Server) handleEnvironment(w http.ResponseWriter, _ *http.Request) {
	if s.environment == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotConfigured, "no sensor configured")
		return
	}
	reading, ok := s.environment.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no reading yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensor":  s.environment.Name(),
		"reading": reading,
	})
}
