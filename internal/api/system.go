package api

import (
	"net/http"
	"runtime"
	"time"
)

// startTime is when the process came up, for the uptime metric.
var startTime = time.Now()

// handleSystemReset power-cycles the BLE adapter.
//
// The monitor restarts scanning by itself afterwards, so the only
// failure mode surfaced here is the power cycle itself.
func (s *Server) handleSystemReset(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.ResetAdapter(r.Context()); err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reset",
	})
}

// handleMetrics returns basic operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":     time.Since(startTime).Seconds(),
		"goroutines":         runtime.NumGoroutine(),
		"heap_alloc_bytes":   m.HeapAlloc,
		"websocket_clients":  clients,
		"connected_trains":   len(s.controller.ConnectedTrains()),
		"connected_switches": len(s.controller.ConnectedSwitches()),
	})
}
