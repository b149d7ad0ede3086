// Package server exposes a viewer session to the browser: the viewer page,
// a JSON API for opening studies and sending input, and the rendered view
// as PNG.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mriviewer/pkg/interaction"
	"mriviewer/pkg/series"
	"mriviewer/pkg/viewer"
	"mriviewer/pkg/visualization"
)

//go:embed static
var staticFS embed.FS

// Viewer is the session served over HTTP
type Viewer interface {
	OpenFolder(ctx context.Context, dir string) error
	OpenFile(ctx context.Context, path string) error
	Push(ctx context.Context, ev interaction.Event) error
	Status(ctx context.Context) (viewer.Status, error)
	Render(ctx context.Context) (*image.RGBA, error)
	Export(ctx context.Context) (string, *image.RGBA, error)
	ExportTo(ctx context.Context, dir string) (string, error)
}

// Options configures a Server
type Options struct {
	// ExportDir receives views saved with POST /api/export; saving is
	// disabled when empty
	ExportDir string

	Logger *slog.Logger
}

// OpenRequest is the body of POST /api/open; exactly one field is set
type OpenRequest struct {
	Folder string `json:"folder,omitempty"`
	File   string `json:"file,omitempty"`
}

// Server routes HTTP requests to a viewer session
type Server struct {
	viewer    Viewer
	exportDir string
	logger    *slog.Logger
	router    *chi.Mux
}

// New creates a server for v
func New(v Viewer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{viewer: v, exportDir: opts.ExportDir, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Post("/open", s.handleOpen)
		r.Post("/events", s.handleEvents)
		r.Get("/status", s.handleStatus)
		r.Get("/view.png", s.handleView)
		r.Get("/export", s.handleExport)
		r.Post("/export", s.handleSave)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	switch {
	case req.Folder != "" && req.File == "":
		err = s.viewer.OpenFolder(r.Context(), req.Folder)
	case req.File != "" && req.Folder == "":
		err = s.viewer.OpenFile(r.Context(), req.File)
	default:
		writeError(w, http.StatusBadRequest, errors.New("exactly one of folder or file is required"))
		return
	}
	if err != nil {
		writeError(w, openStatus(err), err)
		return
	}
	s.writeStatus(w, r)
}

// openStatus maps open failures to HTTP status codes
func openStatus(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, viewer.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, viewer.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, series.ErrNoDICOMFiles), errors.Is(err, series.ErrEmptyBatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// handleEvents accepts a single event or an array of events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var events []interaction.Event
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var ev interaction.Event
		err = json.Unmarshal(trimmed, &ev)
		events = append(events, ev)
	} else {
		err = json.Unmarshal(body, &events)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	for _, ev := range events {
		if err := s.viewer.Push(r.Context(), ev); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(events)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, r)
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.viewer.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	img, err := s.viewer.Render(r.Context())
	if err != nil {
		s.writeRenderError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.writePNG(w, img)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, img, err := s.viewer.Export(r.Context())
	if err != nil {
		s.writeRenderError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	s.writePNG(w, img)
}

// handleSave writes the current view into the export directory
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.exportDir == "" {
		writeError(w, http.StatusNotFound, errors.New("server-side export is disabled"))
		return
	}
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		s.logger.Error("export failed", "dir", s.exportDir, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	path, err := s.viewer.ExportTo(r.Context(), s.exportDir)
	if err != nil {
		s.writeRenderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (s *Server) writeRenderError(w http.ResponseWriter, err error) {
	if errors.Is(err, visualization.ErrNoImage) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("render failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := visualization.WritePNG(&buf, img); err != nil {
		s.logger.Error("encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
