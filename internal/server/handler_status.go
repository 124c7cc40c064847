package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/me/mcsched/pkg/model"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.engine.Snapshot())
}

type eventsResponse struct {
	Count  int                `json:"count"`
	Events []model.TickRecord `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var since time.Duration
	if raw := r.URL.Query().Get("since_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			respondError(w, reqID, http.StatusBadRequest, &APIError{
				Code:    ErrValidation,
				Message: fmt.Sprintf("since_ms: %q is not a non-negative integer", raw),
			})
			return
		}
		since = time.Duration(ms) * time.Millisecond
	}

	events := s.engine.EventsSince(since)
	respondOK(w, reqID, eventsResponse{Count: len(events), Events: events})
}

type tasksResponse struct {
	Count       int              `json:"count"`
	Utilization float64          `json:"utilization"`
	Tasks       []model.TaskInfo `json:"tasks"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, tasksResponse{
		Count:       len(s.tasks),
		Utilization: s.utilization,
		Tasks:       s.tasks,
	})
}
