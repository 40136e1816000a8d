package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"fieldmap/internal/catalog"
	"fieldmap/internal/geo"
	"fieldmap/internal/model"
	"fieldmap/internal/resolver"
	"fieldmap/internal/storage"
)

const maxBodySize = 1 << 20

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(r)
	if !ok {
		s.fail(w, http.StatusUnauthorized, ReasonAccessDenied)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}

	var req reportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}

	if !gjson.GetBytes(body, "objective").Exists() || !gjson.GetBytes(body, "reward").Exists() {
		s.fail(w, http.StatusBadRequest, ReasonMissingFields)
		return
	}
	objectiveIn, err := taskInput(body, "objective")
	if err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}
	rewardIn, err := taskInput(body, "reward")
	if err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}

	pois, err := s.store.ListPOIs(r.Context())
	if err != nil {
		s.log.Error("list pois", "error", err)
		s.fail(w, http.StatusInternalServerError, ReasonDatabaseError)
		return
	}

	query := resolver.PlaceQuery{
		ID:            req.ID,
		Lat:           req.Lat,
		Lon:           req.Lon,
		Name:          req.Name,
		CaseSensitive: req.CaseSensitive,
		ExactOnly:     req.Exact,
	}
	candidates, err := resolver.ResolvePlace(query, resolver.POIPlaces(pois), caller)
	if err != nil {
		s.fail(w, http.StatusBadRequest, ReasonMissingFields)
		return
	}
	switch {
	case len(candidates) == 0:
		s.fail(w, http.StatusBadRequest, ReasonNoPOICandidates)
		return
	case len(candidates) > 1:
		s.failAmbiguous(w, candidates)
		return
	}

	poi, ok := findPOI(pois, candidates[0])
	if !ok {
		s.fail(w, http.StatusBadRequest, ReasonNoPOICandidates)
		return
	}

	lang := s.cfg.DefaultLanguage
	objective, err := resolver.ResolveTask(catalog.KindObjective, objectiveIn, lang, s.bundle)
	if err != nil {
		s.failTask(w, err)
		return
	}
	reward, err := resolver.ResolveTask(catalog.KindReward, rewardIn, lang, s.bundle)
	if err != nil {
		s.failTask(w, err)
		return
	}

	reporter := req.Reporter
	if reporter == "" {
		reporter = "anonymous"
	}

	at := time.Now().UTC()
	if err := s.store.SetPOITasks(r.Context(), poi.ID, objective, reward, reporter, at); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(w, http.StatusBadRequest, ReasonNoPOICandidates)
			return
		}
		s.log.Error("persist report", "poi_id", poi.ID, "error", err)
		s.fail(w, http.StatusInternalServerError, ReasonDatabaseError)
		return
	}

	poi.Objective = objective
	poi.Reward = reward
	poi.UpdatedAt = at
	poi.UpdatedBy = reporter

	w.WriteHeader(http.StatusNoContent)

	s.sink.Dispatch(model.Report{
		POI:        poi,
		Objective:  objective,
		Reward:     reward,
		Reporter:   reporter,
		ReportedAt: at,
	})
}

// failTask maps a task resolution error onto the failure taxonomy.
func (s *Server) failTask(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resolver.ErrMatchModeNotImplemented):
		s.fail(w, http.StatusBadRequest, ReasonMatchMode)
	case errors.Is(err, resolver.ErrNotResolvable):
		s.fail(w, http.StatusBadRequest, ReasonMissingFields)
	default:
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
	}
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authedPOIID(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !geo.ValidCoords(req.Lat, req.Lon) {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return
	}

	s.mutatePOI(w, r, func() error {
		return s.store.MovePOI(r.Context(), id, req.Lat, req.Lon)
	})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authedPOIID(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mutatePOI(w, r, func() error {
		return s.store.RenamePOI(r.Context(), id, req.Name)
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authedPOIID(w, r)
	if !ok {
		return
	}

	s.mutatePOI(w, r, func() error {
		return s.store.ClearPOI(r.Context(), id, time.Now().UTC())
	})
}

func (s *Server) handleListPOIs(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.caller(r); !ok {
		s.fail(w, http.StatusUnauthorized, ReasonAccessDenied)
		return
	}

	pois, err := s.store.ListPOIs(r.Context())
	if err != nil {
		s.log.Error("list pois", "error", err)
		s.fail(w, http.StatusInternalServerError, ReasonDatabaseError)
		return
	}

	out := make([]poiResponse, len(pois))
	for i, p := range pois {
		out[i] = poiResponse{
			ID:        p.ID,
			Name:      p.Name,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Objective: p.Objective,
			Reward:    p.Reward,
			UpdatedBy: p.UpdatedBy,
		}
		if !p.UpdatedAt.IsZero() {
			out[i].UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type poiResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Objective model.Task `json:"objective"`
	Reward    model.Task `json:"reward"`
	UpdatedAt string     `json:"updated_at,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
}

// authedPOIID authenticates the request and parses the path POI ID.
func (s *Server) authedPOIID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if _, ok := s.caller(r); !ok {
		s.fail(w, http.StatusUnauthorized, ReasonAccessDenied)
		return 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return 0, false
	}
	return id, true
}

// decode reads and validates a JSON request body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return false
	}
	if err := json.Unmarshal(body, into); err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return false
	}
	if err := s.validate.Struct(into); err != nil {
		s.fail(w, http.StatusBadRequest, ReasonInvalidData)
		return false
	}
	return true
}

// mutatePOI runs one POI mutation and maps its error.
func (s *Server) mutatePOI(w http.ResponseWriter, r *http.Request, op func() error) {
	if err := op(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(w, http.StatusBadRequest, ReasonNoPOICandidates)
			return
		}
		s.log.Error("poi mutation", "error", err)
		s.fail(w, http.StatusInternalServerError, ReasonDatabaseError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func findPOI(pois []model.POI, id int64) (model.POI, bool) {
	for _, p := range pois {
		if p.ID == id {
			return p, true
		}
	}
	return model.POI{}, false
}
