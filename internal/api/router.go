package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter mounts the control page, /metrics and the /api/v1 surface.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		middleware.RequestSize(maxRequestBodySize),
	)

	r.Get("/", s.handleIndex)
	r.Post("/toggle/{id}", s.handleHTMLToggle)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Get("/audit", s.handleListAudit)
		api.Get("/triggers", s.handleListTriggers)
		api.Get("/environment", s.handleEnvironment)
		api.Get("/ws", s.handleWebSocket)

		api.Get("/devices", s.handleListDevices)
		api.Route("/devices/{id}", func(dev chi.Router) {
			dev.Get("/", s.handleGetDevice)
			dev.Post("/toggle", s.handleToggleDevice)
			dev.Put("/state", s.handleSetDeviceState)
		})
	})

	return r
}
