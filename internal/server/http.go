package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
)

// Handler routes every endpoint of the feed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /instances/{instance}", s.auth.wrap(s.handleIndex))
	mux.HandleFunc("GET /ws", s.auth.wrap(s.handleWebSocket))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Stats
	}{Status: "ok", Stats: s.GetStats()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	instance, err := parseInstance(r.PathValue("instance"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	x, err := s.indexes.Index(r.Context(), instance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, x)
}

func parseInstance(raw string) (models.InstanceID, error) {
	if raw == "" {
		return 0, ErrInvalidInstance
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidInstance
	}
	return models.InstanceID(id), nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrInstanceNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Error("Request failed", log.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", log.Error(err))
	}
}
