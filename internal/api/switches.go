package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pupworks/railyard-core/internal/device"
	"github.com/pupworks/railyard-core/internal/pipeline"
)

// setSwitchRequest is the body for POST /switches/{channel}/ports/{port}.
// Position accepts "straight"/"diverging" or "0"/"1".
type setSwitchRequest struct {
	Position string `json:"position"`
}

// switchResponse reports the outcome of one switch command.
type switchResponse struct {
	Success     bool           `json:"success"`
	Channel     byte           `json:"channel"`
	Port        device.Port    `json:"port"`
	Position    string         `json:"position"`
	Attempts    int            `json:"attempts"`
	Reliability pipeline.Stats `json:"reliability"`
	SuccessRate float64        `json:"success_rate"`
}

// handleSetSwitch commands a switch port and blocks until the position
// is confirmed or retries are exhausted.
//
// Exhaustion is not an HTTP error; the command was processed and its
// outcome is reported in the body with success set to false.
func (s *Server) handleSetSwitch(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}

	port, err := device.ParsePort(chi.URLParam(r, "port"))
	if err != nil {
		writeControlError(w, err)
		return
	}

	var req setSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	position, err := device.ParsePosition(req.Position)
	if err != nil {
		writeControlError(w, err)
		return
	}

	outcome, err := s.controller.SetSwitch(r.Context(), channel, port, position)
	if err != nil && !errors.Is(err, pipeline.ErrExhausted) {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, switchResponse{
		Success:     outcome.Success,
		Channel:     channel,
		Port:        port,
		Position:    position.String(),
		Attempts:    outcome.Attempts,
		Reliability: outcome.Reliability,
		SuccessRate: outcome.Reliability.Rate(),
	})
}

// handleSwitchReliability returns the per-port delivery counters for a
// switch channel.
func (s *Server) handleSwitchReliability(w http.ResponseWriter, r *http.Request) {
	channel, ok := parseChannel(w, r)
	if !ok {
		return
	}

	stats := s.controller.SwitchReliability(channel)
	rates := make(map[device.Port]float64, len(stats))
	for port, st := range stats {
		rates[port] = st.Rate()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel":       channel,
		"reliability":   stats,
		"success_rates": rates,
	})
}

// handleConnectedSwitches lists every switch hub seen within the
// liveness window, with delivery reliability per channel.
func (s *Server) handleConnectedSwitches(w http.ResponseWriter, _ *http.Request) {
	switches := s.controller.ConnectedSwitches()
	reliability := make(map[byte]map[device.Port]pipeline.Stats, len(switches))
	for channel := range switches {
		reliability[channel] = s.controller.SwitchReliability(channel)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"switches":    switches,
		"reliability": reliability,
		"count":       len(switches),
	})
}
