// Package health provides a simple HTTP health check endpoint.
//
// Container orchestrators use this endpoint to monitor the service.
// /healthz reports liveness; /readyz flips to 200 once the TTS engine is
// loaded and the voice registry is built, which can take a while on first
// start when the model downloads.
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

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port    int
	version string
	ready   atomic.Bool
	server  *http.Server
}

// New creates a new health check server.
func New(port int, version string) *Server {
	return &Server{port: port, version: version}
}

// SetReady marks the service as ready to accept generation requests.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, true)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, s.ready.Load())
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
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

func (s *Server) respond(w http.ResponseWriter, ok bool) {
	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"version": s.version,
	})
}
