package api

import (
	"encoding/json"
	"net/http"
)

type ruleView struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Pattern string `json:"pattern"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	sz := s.rules.Current()
	if sz == nil {
		jsonError(w, "no section rules loaded", http.StatusServiceUnavailable)
		return
	}

	compiled := sz.Table().Rules()
	rules := make([]ruleView, len(compiled))
	for i, rule := range compiled {
		rules[i] = ruleView{ID: rule.ID, Label: rule.Label, Pattern: rule.Matcher.String()}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"file":        s.rules.Path(),
		"end_markers": sz.EndMarkers(),
		"rules":       rules,
	})
}

func (s *Server) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.Reload(); err != nil {
		s.log.Error("manual rule reload failed", "error", err)
		jsonError(w, "reload failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	count := 0
	if sz := s.rules.Current(); sz != nil {
		count = sz.Table().Len()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"file":  s.rules.Path(),
		"rules": count,
	})
}
