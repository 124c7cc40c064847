package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status       string  `json:"status"`
	Version      string  `json:"version"`
	GoVersion    string  `json:"go_version"`
	Uptime       string  `json:"uptime"`
	Mode         string  `json:"mode"`
	Policy       string  `json:"policy"`
	Tick         int64   `json:"tick"`
	Tasks        int     `json:"tasks"`
	LoadEstimate float64 `json:"load_estimate"`
	Overloaded   bool    `json:"overloaded"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	snap := s.engine.Snapshot()
	respondOK(w, reqID, healthResponse{
		Status:       "healthy",
		Version:      "0.1.0",
		GoVersion:    runtime.Version(),
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		Mode:         string(s.mode),
		Policy:       s.policy,
		Tick:         snap.Tick,
		Tasks:        len(s.tasks),
		LoadEstimate: snap.LoadEstimate,
		Overloaded:   snap.Overloaded,
	})
}
