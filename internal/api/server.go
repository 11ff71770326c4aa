// Package api serves the gateway's current picture over HTTP: the tracked
// aircraft states and the receiver's counters.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"prd_gateway/internal/ingest"
	"prd_gateway/internal/state"
)

// Config holds API server settings.
type Config struct {
	Port int
}

// Server exposes the tracker and receiver stats.
type Server struct {
	tracker *state.Tracker
	ingest  *ingest.Server
	port    int
}

// NewServer builds the status API. ingest may be nil (decode-only tools).
func NewServer(tracker *state.Tracker, ing *ingest.Server, cfg Config) *Server {
	return &Server{tracker: tracker, ingest: ing, port: cfg.Port}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/aircraft", s.handleListAircraft)
	r.Get("/aircraft/{callsign}", s.handleGetAircraft)

	return r
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	log.Printf("api: listening on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"aircraft": s.tracker.Len(),
	}
	if s.ingest != nil {
		resp["ingest"] = s.ingest.Stats()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAircraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tracker.List())
}

func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	entry, ok := s.tracker.Get(callsign)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown callsign"})
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
