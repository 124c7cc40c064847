package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/mcsched/internal/telemetry"
)

type runsResponse struct {
	Count int              `json:"count"`
	Runs  []*telemetry.Run `json:"runs"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, &APIError{
				Code:    ErrValidation,
				Message: "limit: must be an integer",
			})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&APIError{Code: ErrInternal, Message: err.Error()})
		return
	}
	respondOK(w, reqID, runsResponse{Count: len(runs), Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&APIError{Code: ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, &APIError{
			Code:    ErrNotFound,
			Message: "run '" + id + "' not found",
		})
		return
	}
	respondOK(w, reqID, run)
}
