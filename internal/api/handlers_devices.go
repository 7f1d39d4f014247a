package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/uifuse/internal/adb"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.device.Devices(r.Context())
	if err != nil {
		jsonError(w, "failed to list devices: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if devices == nil {
		devices = []adb.Device{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	png, err := s.device.Screenshot(r.Context(), serial)
	if err != nil {
		jsonError(w, "screenshot failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

type tapRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	var req tapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.X < 0 || req.Y < 0 {
		jsonError(w, "x and y must be non-negative", http.StatusBadRequest)
		return
	}

	if err := s.device.Tap(r.Context(), serial, req.X, req.Y); err != nil {
		jsonError(w, "tap failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

type swipeRequest struct {
	X1         int `json:"x1"`
	Y1         int `json:"y1"`
	X2         int `json:"x2"`
	Y2         int `json:"y2"`
	DurationMs int `json:"duration_ms"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.X1 < 0 || req.Y1 < 0 || req.X2 < 0 || req.Y2 < 0 {
		jsonError(w, "coordinates must be non-negative", http.StatusBadRequest)
		return
	}

	duration := time.Duration(req.DurationMs) * time.Millisecond
	if err := s.device.Swipe(r.Context(), serial, req.X1, req.Y1, req.X2, req.Y2, duration); err != nil {
		jsonError(w, "swipe failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleInputText(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	if err := s.device.InputText(r.Context(), serial, req.Text); err != nil {
		jsonError(w, "text input failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

type keyRequest struct {
	Keycode int `json:"keycode"`
}

func (s *Server) handlePressKey(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Keycode <= 0 {
		jsonError(w, "keycode must be a positive integer", http.StatusBadRequest)
		return
	}

	if err := s.device.PressKey(r.Context(), serial, req.Keycode); err != nil {
		jsonError(w, "key press failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
