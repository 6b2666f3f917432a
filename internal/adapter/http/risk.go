package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/store"
)

type predictRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a non-empty city")
		return
	}

	report, err := s.opts.Assessor.Assess(r.Context(), req.City)
	switch {
	case errors.Is(err, domain.ErrCityNotFound):
		writeError(w, http.StatusNotFound, "City not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "risk assessment failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := s.opts.Users.RecentPredictions(r.Context(), s.opts.RecentLimit)
	if err != nil {
		s.logger.Error("list recent predictions", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load predictions")
		return
	}
	if preds == nil {
		preds = []store.Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

func (s *Server) handleHistoricalStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Stats.Stats())
}
