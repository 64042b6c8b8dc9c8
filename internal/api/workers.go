package api

import (
	"net/http"
	"strconv"

	"github.com/dlots/foreman/internal/model"
)

// listWorkersResponse is the JSON response for GET /v1/workers.
type listWorkersResponse struct {
	Workers []model.WorkerInfo `json:"workers"`
	Count   int                `json:"count"`
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers := s.reg.Info()
	s.writeJSON(w, http.StatusOK, listWorkersResponse{
		Workers: workers,
		Count:   len(workers),
	})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
