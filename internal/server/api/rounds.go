// Package api provides HTTP API handlers for the rock-paper-scissors game.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/store"
)

// MaxListLimit bounds the limit query parameter.
const MaxListLimit = 100

// RoundsHandler serves the session's round history.
type RoundsHandler struct {
	store *store.Store
}

// NewRoundsHandler creates a new RoundsHandler with the given store.
func NewRoundsHandler(s *store.Store) *RoundsHandler {
	return &RoundsHandler{store: s}
}

type roundsResponse struct {
	Rounds []game.Round `json:"rounds"`
	Stats  store.Stats  `json:"stats"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles GET /api/rounds?limit=N.
func (h *RoundsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := store.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxListLimit))
			return
		}
		limit = n
	}

	rounds, err := h.store.Rounds().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rounds")
		return
	}

	stats, err := h.store.Rounds().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count rounds")
		return
	}

	writeJSON(w, http.StatusOK, roundsResponse{Rounds: rounds, Stats: stats})
}

// RoundHandler serves the live round snapshot.
type RoundHandler struct {
	snapshot func() game.Round
}

// NewRoundHandler creates a RoundHandler reading from snapshot.
func NewRoundHandler(snapshot func() game.Round) *RoundHandler {
	return &RoundHandler{snapshot: snapshot}
}

// ServeHTTP handles GET /api/round.
func (h *RoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
