package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pupworks/railyard-core/internal/control"
)

// trainPowerRequest is the body for POST /trains/{channel}/power.
type trainPowerRequest struct {
	Power int `json:"power"`
}

// selfDriveRequest is the body for POST /trains/{channel}/selfdrive.
type selfDriveRequest struct {
	Enabled bool `json:"enabled"`
}

// handleTrainPower enqueues a power command for a train channel.
//
// Train commands are fire-and-forget, so acceptance is reported with
// 202 rather than waiting for anything from the hub. Out-of-range
// powers are clamped, not rejected.
func (s *Server) handleTrainPower(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}

	var req trainPowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	clamped := control.ClampPower(req.Power)
	if err := s.controller.SetTrainPower(channel, clamped); err != nil {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "queued",
		"channel": channel,
		"power":   clamped,
	})
}

// handleSelfDrive toggles autonomous mode for a train channel.
func (s *Server) handleSelfDrive(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}

	var req selfDriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.controller.SetSelfDrive(channel, req.Enabled); err != nil {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "queued",
		"channel":    channel,
		"self_drive": req.Enabled,
	})
}

// handleConnectedTrains lists every train seen within the liveness window.
func (s *Server) handleConnectedTrains(w http.ResponseWriter, _ *http.Request) {
	trains := s.controller.ConnectedTrains()
	writeJSON(w, http.StatusOK, map[string]any{
		"trains": trains,
		"count":  len(trains),
	})
}

// parseChannel reads the {channel} URL parameter. Channels are single
// bytes on the wire, so anything outside 0-255 is rejected.
func parseChannel(w http.ResponseWriter, r *http.Request) (byte, bool) {
	raw := chi.URLParam(r, "channel")
	n, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		writeBadRequest(w, "channel must be an integer 0-255")
		return 0, false
	}
	return byte(n), true
}
