// Package server exposes the research report HTTP API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"fieldmap/internal/config"
	"fieldmap/internal/i18n"
	"fieldmap/internal/model"
	"fieldmap/internal/storage"
)

// Failure reason codes returned to clients as {"reason": code}.
const (
	ReasonMissingFields   = "missing_fields"
	ReasonNoPOICandidates = "no_poi_candidates"
	ReasonPOIAmbiguous    = "poi_ambiguous"
	ReasonInvalidData     = "invalid_data"
	ReasonMatchMode       = "match_mode_not_implemented"
	ReasonAccessDenied    = "access_denied"
	ReasonDatabaseError   = "database_error"
)

// ReportSink receives fully resolved reports for webhook delivery.
type ReportSink interface {
	Dispatch(report model.Report)
}

// Server handles the report API endpoints.
type Server struct {
	store    storage.Storage
	sink     ReportSink
	bundle   *i18n.Bundle
	cfg      *config.Config
	log      *slog.Logger
	validate *validator.Validate
}

// New creates a Server.
func New(store storage.Storage, sink ReportSink, bundle *i18n.Bundle, cfg *config.Config, log *slog.Logger) *Server {
	return &Server{
		store:    store,
		sink:     sink,
		bundle:   bundle,
		cfg:      cfg,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler returns the API route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/report", s.handleReport)
	mux.HandleFunc("POST /api/poi/{id}/move", s.handleMove)
	mux.HandleFunc("POST /api/poi/{id}/rename", s.handleRename)
	mux.HandleFunc("POST /api/poi/{id}/clear", s.handleClear)
	mux.HandleFunc("GET /api/pois", s.handleListPOIs)
	return mux
}

// caller classifies the request by its authentication method. A present
// but unknown API key is rejected outright.
func (s *Server) caller(r *http.Request) (model.CallerKind, bool) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		return model.CallerInteractive, true
	}
	if !s.cfg.IsAPIKey(key) {
		return "", false
	}
	return model.CallerClient, true
}

func (s *Server) fail(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]any{"reason": reason})
}

func (s *Server) failAmbiguous(w http.ResponseWriter, candidates []int64) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"reason":     ReasonPOIAmbiguous,
		"candidates": candidates,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
