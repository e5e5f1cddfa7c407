package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sporehut/sporehut-core/internal/device"
)

// DeviceListResponse is returned by GET /api/v1/devices.
type DeviceListResponse struct {
	Devices []device.Record `json:"devices"`
	Count   int             `json:"count"`
}

// SetStateRequest is the body of PUT /api/v1/devices/{id}/state.
type SetStateRequest struct {
	On *bool `json:"on"`
}

// handleListDevices returns a snapshot of every device, in configuration order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.client.GetDeviceConfigs(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	s.rememberSnapshot(devices)

	writeJSON(w, http.StatusOK, DeviceListResponse{
		Devices: devices,
		Count:   len(devices),
	})
}

// handleGetDevice returns one device from a fresh snapshot.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	devices, err := s.client.GetDeviceConfigs(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	s.rememberSnapshot(devices)

	for _, d := range devices {
		if d.ID == id {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, http.StatusNotFound, ErrCodeNotFound, "device not found: "+id)
}

// handleToggleDevice flips a device and returns the updated record.
func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.client.Toggle(r.Context(), id)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleSetDeviceState switches a device to an explicit state. Setting the
// current state is allowed and still drives the relay.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeBadRequest(w, `"on" is required`)
		return
	}

	state := device.StateOff
	if *req.On {
		state = device.StateOn
	}

	rec, err := s.client.SetState(r.Context(), id, state)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
