package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/uifuse/internal/adb"
	"github.com/dgallion1/uifuse/internal/config"
	"github.com/dgallion1/uifuse/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for uifuse.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	device       *adb.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, device *adb.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		device:       device,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.UIFuseAPIKey, s.log))

		r.Post("/api/snapshots", s.handleUploadSnapshot)
		r.Get("/api/snapshots", s.handleListSnapshots)
		r.Get("/api/snapshots/{snapshotID}", s.handleGetSnapshot)
		r.Delete("/api/snapshots/{snapshotID}", s.handleDeleteSnapshot)
		r.Get("/api/snapshots/{snapshotID}/element", s.handleElementAt)
		r.Get("/api/snapshots/{snapshotID}/search", s.handleSearch)
		r.Get("/api/snapshots/{snapshotID}/report", s.handleReport)

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/devices", s.handleListDevices)
		r.Post("/api/devices/{serial}/snapshots", s.handleCaptureSnapshot)
		r.Get("/api/devices/{serial}/screenshot", s.handleScreenshot)
		r.Post("/api/devices/{serial}/tap", s.handleTap)
		r.Post("/api/devices/{serial}/swipe", s.handleSwipe)
		r.Post("/api/devices/{serial}/text", s.handleInputText)
		r.Post("/api/devices/{serial}/key", s.handlePressKey)

		r.Get("/api/stats/adb", s.handleADBStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
