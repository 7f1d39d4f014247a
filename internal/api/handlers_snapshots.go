package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgallion1/uifuse/internal/merge"
	"github.com/dgallion1/uifuse/internal/parser"
	"github.com/dgallion1/uifuse/internal/pipeline"
	"github.com/dgallion1/uifuse/internal/query"
	"github.com/dgallion1/uifuse/internal/report"
	"github.com/dgallion1/uifuse/internal/uitree"
)

// handleUploadSnapshot accepts raw dump files and queues a merge.
// Dumps arrive either in the named fields "geometry" and "attributes",
// or as generic "file" fields routed by extension.
func (s *Server) handleUploadSnapshot(w http.ResponseWriter, r *http.Request) {
	// Limit total request size: two dumps plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*2+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	geometry, err := s.readDumpFile(r, "geometry")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	attributes, err := s.readDumpFile(r, "attributes")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Generic files fall into whichever slot their extension suggests.
	for _, fh := range r.MultipartForm.File["file"] {
		filename := sanitizeFilename(fh.Filename)
		kind, err := parser.KindForFile(filename)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := s.readFileHeader(fh)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch kind {
		case parser.KindHierarchy:
			if geometry == nil {
				geometry = data
			}
		case parser.KindAutomator:
			if attributes == nil {
				attributes = data
			}
		}
	}

	if geometry == nil && attributes == nil {
		jsonError(w, "at least one dump file is required (geometry or attributes)", http.StatusBadRequest)
		return
	}

	now := time.Now()
	job := &pipeline.Job{
		ID:         uuid.NewString(),
		SnapshotID: uuid.NewString(),
		Source:     pipeline.SourceUpload,
		Activity:   r.FormValue("activity"),
		Status:     pipeline.StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	job.SetDumps(geometry, attributes)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      job.ID,
		"snapshot_id": job.SnapshotID,
		"status":      job.Status,
		"poll_url":    fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

// handleCaptureSnapshot queues a live capture from an attached device.
func (s *Server) handleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	now := time.Now()
	job := &pipeline.Job{
		ID:           uuid.NewString(),
		SnapshotID:   uuid.NewString(),
		Source:       pipeline.SourceDevice,
		DeviceSerial: serial,
		Status:       pipeline.StatusQueued,
		Phase:        "queued",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      job.ID,
		"snapshot_id": job.SnapshotID,
		"status":      job.Status,
		"poll_url":    fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// snapshotMeta is the list view of a snapshot: everything but the tree.
type snapshotMeta struct {
	ID                string      `json:"id"`
	Source            string      `json:"source"`
	DeviceSerial      string      `json:"device_serial,omitempty"`
	DeviceModel       string      `json:"device_model,omitempty"`
	Activity          string      `json:"activity,omitempty"`
	CapturedAt        time.Time   `json:"captured_at"`
	Stats             merge.Stats `json:"stats"`
	GeometryAnchored  bool        `json:"geometry_anchored"`
	AttributeAnchored bool        `json:"attribute_anchored"`
	Warnings          []string    `json:"warnings,omitempty"`
	NodeCount         int         `json:"node_count"`
}

func metaOf(snap *pipeline.Snapshot) snapshotMeta {
	return snapshotMeta{
		ID:                snap.ID,
		Source:            snap.Source,
		DeviceSerial:      snap.DeviceSerial,
		DeviceModel:       snap.DeviceModel,
		Activity:          snap.Activity,
		CapturedAt:        snap.CapturedAt,
		Stats:             snap.Stats,
		GeometryAnchored:  snap.GeometryAnchored,
		AttributeAnchored: snap.AttributeAnchored,
		Warnings:          snap.Warnings,
		NodeCount:         uitree.Count(snap.Tree),
	}
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps := s.orchestrator.Snapshots().List()
	metas := make([]snapshotMeta, 0, len(snaps))
	for _, snap := range snaps {
		metas = append(metas, metaOf(snap))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"snapshots": metas,
		"count":     len(metas),
	})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotByID(w, r)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "snapshotID")
	if !s.orchestrator.Snapshots().Delete(id) {
		jsonError(w, "snapshot not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": true})
}

// handleElementAt resolves the deepest element covering a screen point.
func (s *Server) handleElementAt(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotByID(w, r)
	if snap == nil {
		return
	}

	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		jsonError(w, "x and y query parameters must be integers", http.StatusBadRequest)
		return
	}

	node := query.ElementAt(snap.Tree, x, y)
	if node == nil {
		jsonError(w, fmt.Sprintf("no element at (%d,%d)", x, y), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"x":       x,
		"y":       y,
		"element": node,
	})
}

// handleSearch finds elements whose text fields contain the query.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotByID(w, r)
	if snap == nil {
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	hits := query.Search(snap.Tree, q)
	results := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		result := map[string]any{
			"summary":      h.Node.Summary(),
			"class":        h.Node.Class,
			"resource_id":  h.Node.ResourceID,
			"text":         h.Node.Text,
			"content_desc": h.Node.ContentDesc,
			"path":         h.Path,
		}
		if h.Node.HasBounds {
			result["bounds"] = h.Node.Bounds.String()
			result["center_x"] = h.Node.Bounds.CenterX()
			result["center_y"] = h.Node.Bounds.CenterY()
		}
		results = append(results, result)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   q,
		"count":   len(results),
		"results": results,
	})
}

// handleReport renders a snapshot as markdown, HTML, or DOCX.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshotByID(w, r)
	if snap == nil {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}

	switch format {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, report.Markdown(snap))
	case "html":
		page, err := report.HTML(snap)
		if err != nil {
			jsonError(w, "failed to render report: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	case "docx":
		var buf bytes.Buffer
		if err := report.DOCX(snap, &buf); err != nil {
			jsonError(w, "failed to render report: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="snapshot-%s.docx"`, snap.ID))
		w.Write(buf.Bytes())
	default:
		jsonError(w, "format must be markdown, html, or docx", http.StatusBadRequest)
	}
}

// snapshotByID resolves the snapshot in the URL, writing a 404 when it
// is missing.
func (s *Server) snapshotByID(w http.ResponseWriter, r *http.Request) *pipeline.Snapshot {
	id := chi.URLParam(r, "snapshotID")
	snap := s.orchestrator.Snapshots().Get(id)
	if snap == nil {
		jsonError(w, "snapshot not found", http.StatusNotFound)
	}
	return snap
}

// readDumpFile reads one named upload field, nil when absent.
func (s *Server) readDumpFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %s", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", field)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}
	return data, nil
}

func (s *Server) readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", fh.Filename)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds max size (%d bytes)", fh.Filename, s.cfg.MaxUploadBytes)
	}
	return data, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
