// cmd/funnel-manager/app.go
package main

import (
	"encoding/json"
	"net/http"

	"opportunity-funnel/internal/funnel/classifier"
	"opportunity-funnel/internal/funnel/intelligence"
	"opportunity-funnel/internal/funnel/notes"
	"opportunity-funnel/internal/funnel/pipeline"
	"opportunity-funnel/internal/funnel/screening"
	"opportunity-funnel/internal/funnel/selection"
	"opportunity-funnel/internal/store"
)

// App bundles the wired funnel components for the hosting presentation
// layer. The manager process itself only exposes status and metrics.
type App struct {
	Pipeline     *pipeline.Pipeline
	Classifier   *classifier.Service
	Selection    *selection.Gateway
	Screening    *screening.Orchestrator
	Intelligence *intelligence.Engine
	Notes        *notes.Controller
}

func (a *App) statusHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"funnel_summary": s.Summary(),
			"selected":       a.Selection.Count(),
			"actual_cost":    a.Intelligence.ActualCost(),
			"selected_tier":  a.Intelligence.SelectedTier().ID,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}
