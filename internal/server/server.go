package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"volleysim/internal/game"
	"volleysim/internal/roster"
	"volleysim/internal/session"
)

// Server is the HTTP server.
type Server struct {
	mux      *http.ServeMux
	registry *game.Registry
	roster   *roster.Roster
	manager  *session.Manager
}

// New creates a server with all routes.
func New(registry *game.Registry, rs *roster.Roster, manager *session.Manager) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
		roster:   rs,
		manager:  manager,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/strategies", s.handleListStrategies)
	s.mux.HandleFunc("GET /api/teams", s.handleListTeams)
	s.mux.HandleFunc("GET /api/matches", s.handleListMatches)
	s.mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	s.mux.HandleFunc("POST /api/matches/{id}/start", s.handleStartMatch)
	s.mux.HandleFunc("GET /api/matches/{id}/summary", s.handleGetSummary)
	s.mux.HandleFunc("GET /api/matches/{id}/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.roster.Teams())
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

type createMatchRequest struct {
	Home session.SideConfig `json:"home"`
	Away session.SideConfig `json:"away"`
	Seed int64              `json:"seed"`
}

type createMatchResponse struct {
	ID   string `json:"id"`
	Seed int64  `json:"seed"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	for _, side := range []*session.SideConfig{&req.Home, &req.Away} {
		side.Team = strings.TrimSpace(side.Team)
		if side.Players = strings.TrimSpace(side.Players); side.Players == "" {
			side.Players = "heuristic"
		}
		if side.Manager = strings.TrimSpace(side.Manager); side.Manager == "" {
			side.Manager = "situational"
		}
	}
	if req.Home.Team == "" || req.Away.Team == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "home and away teams required"})
		return
	}

	sess, err := s.manager.Create(req.Home, req.Away, req.Seed)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, createMatchResponse{ID: sess.ID, Seed: sess.Seed})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	if err := s.manager.Start(sess); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.broadcastState(sess)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	sum, ok := sess.Summary()
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "match has not finished"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write-response-failed")
	}
}
