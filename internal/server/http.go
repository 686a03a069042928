package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lox/holdem-engine/internal/store"
)

// Handler returns the HTTP routes: the WebSocket endpoint plus a small
// read-only JSON API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/tables", s.handleTables)
	r.Get("/tables/{tableID}", s.handleTable)
	r.Get("/tables/{tableID}/hands", s.handleTableHands)
	r.Get("/hands/{handID}", s.handleHand)
	r.Get("/stats", s.handleStats)
	r.Get("/stats/players", s.handlePlayerTotals)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, TableListData{Tables: s.gameService.ListTables()})
}

// handleTable returns a snapshot. ?viewer= selects whose hole cards are shown.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.gameService.Snapshot(chi.URLParam(r, "tableID"), r.URL.Query().Get("viewer"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, errorCode(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTableHands(w http.ResponseWriter, r *http.Request) {
	if s.hands == nil {
		s.writeError(w, http.StatusNotFound, "no_store", "hand store not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	rows, err := s.hands.RecentHands(r.Context(), chi.URLParam(r, "tableID"), limit)
	if err != nil {
		s.logger.Error("Failed to list hands", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to list hands")
		return
	}
	if rows == nil {
		rows = []store.HandRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHand(w http.ResponseWriter, r *http.Request) {
	if s.hands == nil {
		s.writeError(w, http.StatusNotFound, "no_store", "hand store not configured")
		return
	}
	rec, err := s.hands.Hand(r.Context(), chi.URLParam(r, "handID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "hand_not_found", err.Error())
	case err != nil:
		s.logger.Error("Failed to load hand", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to load hand")
	default:
		s.writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusNotFound, "no_stats", "statistics not enabled")
		return
	}
	s.writeJSON(w, http.StatusOK, s.stats.Report())
}

func (s *Server) handlePlayerTotals(w http.ResponseWriter, r *http.Request) {
	if s.hands == nil {
		s.writeError(w, http.StatusNotFound, "no_store", "hand store not configured")
		return
	}
	totals, err := s.hands.PlayerTotals(r.Context())
	if err != nil {
		s.logger.Error("Failed to load player totals", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to load player totals")
		return
	}
	if totals == nil {
		totals = []store.PlayerTotal{}
	}
	s.writeJSON(w, http.StatusOK, totals)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorData{Code: code, Message: message})
}
