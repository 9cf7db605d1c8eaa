package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reel-clipper/internal/logging"
)

// Server exposes /metrics and health probes while a batch runs.
type Server struct {
	srv     *http.Server
	router  *mux.Router
	ready   atomic.Bool
	started time.Time
}

// NewServer creates a server listening on :port. It does not start it.
func NewServer(port string) *Server {
	s := &Server{started: time.Now()}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.healthCheck).Methods("GET")
	r.HandleFunc("/livez", s.livenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", s.readinessCheck).Methods("GET")
	s.router = r

	s.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying router for route listing.
func (s *Server) Router() *mux.Router {
	return s.router
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:       "healthy",
		Ready:        s.ready.Load(),
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if !resp.Ready {
		resp.Status = "starting"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) livenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	if s.ready.Load() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response: %v", err)
	}
}
