package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleADBStats(w http.ResponseWriter, r *http.Request) {
	if s.device == nil {
		jsonError(w, "adb stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"stats": s.device.Stats(),
	})
}
