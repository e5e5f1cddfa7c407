package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sporehut/sporehut-core/internal/device"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData feeds both the full page and the device list fragment.
type pageData struct {
	AppName string
	Devices []device.Record
	Error   string
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}

// handleIndex renders the control page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{AppName: s.siteName}

	devices, err := s.client.GetDeviceConfigs(r.Context())
	if err != nil {
		data.Devices = s.snapshot()
		data.Error = "Could not read devices: " + err.Error()
	} else {
		s.rememberSnapshot(devices)
		data.Devices = devices
	}

	s.render(w, "index", data)
}

// handleHTMLToggle toggles a device and returns the refreshed device list
// fragment. On failure the last known snapshot is shown with an error
// banner.
func (s *Server) handleHTMLToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data := pageData{AppName: s.siteName}

	if _, err := s.client.Toggle(r.Context(), id); err != nil {
		s.logger.Warn("html toggle failed", "device_id", id, "error", err)
		data.Devices = s.snapshot()
		data.Error = fmt.Sprintf("Could not toggle %s: %v", id, err)
		s.render(w, "devices", data)
		return
	}

	devices, err := s.client.GetDeviceConfigs(r.Context())
	if err != nil {
		data.Devices = s.snapshot()
		data.Error = "Could not read devices: " + err.Error()
	} else {
		s.rememberSnapshot(devices)
		data.Devices = devices
	}

	s.render(w, "devices", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render failed", "template", name, "error", err)
	}
}
