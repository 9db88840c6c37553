package api

import "net/http"

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "model stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": s.cfg.StatsWindow.String(),
		"models": s.stats.Snapshot(),
	})
}
