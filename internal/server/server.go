// Package server provides the HTTP server for the rock-paper-scissors game.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/server/api"
	"github.com/ayusman/rpscam/internal/store"
	"github.com/ayusman/rpscam/internal/web"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Game is the live game state the server presents.
type Game interface {
	Snapshot() game.Round
	Current() game.Observation
	Observe(hands []detector.HandLandmarks) game.Observation
}

// Config holds the server configuration.
type Config struct {
	// StaticDir overrides the bundled browser client.
	StaticDir string
	Store     *store.Store
	Game      Game
	Frames    FrameSource
	Hub       *Hub
	// Ingest accepts landmarks from the browser on /api/landmarks.
	Ingest bool
}

// Server represents the HTTP server for the game.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.Handle("/api/rounds", api.NewRoundsHandler(s.config.Store))
	}

	if s.config.Game != nil {
		s.mux.Handle("/api/round", api.NewRoundHandler(s.config.Game.Snapshot))

		if s.config.Frames != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames, s.config.Game))
		}
		if s.config.Ingest {
			s.mux.Handle("/api/landmarks", NewIngestHandler(s.config.Game))
		}
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	// Serve StaticDir if configured, the bundled page otherwise
	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		s.mux.Handle("/", http.FileServerFS(web.FS()))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
		"remote": s.config.Ingest,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Long-lived streams end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("Server listening on http://%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
