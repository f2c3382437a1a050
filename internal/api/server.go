// Package api serves the viewer page, its websocket page sessions, log
// uploads and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SemanticZoom/internal/config"
	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/layout"
	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/scheduler"
	"github.com/AaronLay10/SemanticZoom/internal/storage/postgres"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
	"github.com/AaronLay10/SemanticZoom/internal/version"
	"github.com/AaronLay10/SemanticZoom/internal/viewer"
)

// maxUploadBytes bounds the size of an uploaded event log.
const maxUploadBytes = 64 << 20

// History lists past discoveries.
type History interface {
	Discoveries(ctx context.Context, limit int) ([]postgres.Discovery, error)
}

// Options configure the server. Config, Miner and Layout are required.
type Options struct {
	Config *config.ViewerConfig
	Miner  viewer.Miner
	Layout layout.Service

	Metrics *Metrics
	History History
	Clock   scheduler.Clock

	OnStatus     func(sessionID, text string)
	OnDiscovered func(ctx context.Context, sessionID, fileName string, res *miner.Result)
}

// Server owns the HTTP routes and the page session registry.
type Server struct {
	opts     Options
	sessions *Sessions
	upgrader websocket.Upgrader
}

// NewServer builds a server.
func NewServer(opts Options) *Server {
	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	var onChange func(int)
	if opts.Metrics != nil {
		onChange = func(n int) { opts.Metrics.sessions.Set(float64(n)) }
	}
	s.sessions = NewSessions(onChange)
	return s
}

// Sessions returns the page session registry.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", RequireAnyRole(uiHandler))
	mux.HandleFunc("/ws/view", RequireAnyRole(s.viewHandler))
	mux.HandleFunc("/api/upload", RequireAnyRole(s.uploadHandler))
	mux.HandleFunc("/api/discoveries", RequireAdmin(s.discoveriesHandler))
	mux.HandleFunc("/events", RequireAdmin(eventsHandler))
	mux.HandleFunc("/ws/events", RequireAdmin(wsEventsHandler))
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and closes every page session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Config.UIPort()),
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		scheme := "http"
		if tlsCfg != nil {
			scheme = "https"
		}
		log.Printf("viewer listening on %s://0.0.0.0%s", scheme, srv.Addr)
		if tlsCfg != nil {
			errc <- srv.ListenAndServeTLS("", "")
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	s.sessions.CloseAll()
	return err
}

// newViewer opens a page session wired to the server's dependencies.
func (s *Server) newViewer(id string, notify func(viewer.Update)) *viewer.Viewer {
	cfg := s.opts.Config
	opts := viewer.Options{
		ID:             id,
		Miner:          s.opts.Miner,
		Layout:         s.opts.Layout,
		Window:         cfg.Interaction.Debounce,
		Clock:          s.opts.Clock,
		GraphSize:      surface.Size{Width: cfg.Interaction.GraphWidth, Height: cfg.Interaction.GraphHeight},
		AnnotationSize: surface.Size{Width: cfg.Interaction.AnnotationWidth, Height: cfg.Interaction.AnnotationHeight},
		Notify:         notify,
		OnStatus:       s.opts.OnStatus,
		OnDiscovered:   s.opts.OnDiscovered,
	}
	if s.opts.Metrics != nil {
		opts.Observer = s.opts.Metrics
	}
	v := viewer.New(opts)
	s.sessions.Add(v)
	return v
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Viewer    string `json:"viewer"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Sessions  int    `json:"sessions"`
	Timestamp string `json:"ts"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "semzoom",
		Viewer:    s.opts.Config.Viewer.Name,
		Version:   version.Version,
		Hostname:  host,
		Sessions:  s.sessions.Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

// UploadResponse is the /api/upload body.
type UploadResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	LogID  string `json:"logId,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, UploadResponse{Error: "method not allowed"})
		return
	}
	v, ok := s.sessions.Get(r.URL.Query().Get("session"))
	if !ok {
		writeJSON(w, http.StatusNotFound, UploadResponse{Error: "page session not found"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.observeUpload("rejected")
		writeJSON(w, http.StatusBadRequest, UploadResponse{Error: "multipart field \"file\" required"})
		return
	}
	defer file.Close()

	err = v.Upload(r.Context(), header.Filename, file)
	resp := UploadResponse{OK: err == nil, Status: v.Status()}
	resp.LogID, _ = v.LogID()

	code := http.StatusOK
	switch {
	case err == nil:
		s.observeUpload("ok")
	case errors.Is(err, viewer.ErrUpload):
		s.observeUpload("rejected")
		code = http.StatusUnsupportedMediaType
	case errors.Is(err, miner.ErrDiscovery):
		s.observeUpload("error")
		code = http.StatusBadGateway
	default:
		s.observeUpload("error")
		code = http.StatusInternalServerError
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, code, resp)
}

func (s *Server) observeUpload(outcome string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveUpload(outcome)
	}
}

func (s *Server) discoveriesHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "discovery history disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.opts.History.Discoveries(r.Context(), limit)
	if err != nil {
		log.Printf("discovery history query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if list == nil {
		list = []postgres.Discovery{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
