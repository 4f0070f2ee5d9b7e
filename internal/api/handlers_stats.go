package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleSegmentStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "segment stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}
