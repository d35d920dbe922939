// Package health provides the HTTP liveness and readiness endpoints.
//
// /healthz reports whether the daemon is up. /readyz additionally reports
// the OS permissions the context pipeline depends on. Missing permissions
// degrade a snapshot but never fail it, so they are informational and do
// not affect the status code.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Permissions is the subset of the platform backend the readiness probe reads.
type Permissions interface {
	Trusted() bool
	ScreenCaptureAllowed() bool
}

// Status is the JSON body of both endpoints.
type Status struct {
	Status          string `json:"status"`
	Accessibility   *bool  `json:"accessibility,omitempty"`
	ScreenRecording *bool  `json:"screen_recording,omitempty"`
}

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	perms  Permissions
	ready  atomic.Bool
	server *http.Server
}

// New creates a new health check server. perms may be nil.
func New(port int, perms Permissions) *Server {
	return &Server{port: port, perms: perms}
}

// SetReady marks the daemon as ready to serve context requests.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the health routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.write(w, Status{})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		var st Status
		if s.perms != nil {
			ax, rec := s.perms.Trusted(), s.perms.ScreenCaptureAllowed()
			st.Accessibility, st.ScreenRecording = &ax, &rec
		}
		s.write(w, st)
	})

	return mux
}

func (s *Server) write(w http.ResponseWriter, st Status) {
	w.Header().Set("Content-Type", "application/json")
	if !s.ready.Load() {
		st.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		st.Status = "ok"
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(st)
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
