// internal/remote/opportunityapi/models.go
package opportunityapi

import "opportunity-funnel/internal/models"

// FetchResult is the payload returned when loading a profile's
// opportunity set.
type FetchResult struct {
	Opportunities     []models.Opportunity     `json:"opportunities"`
	Summary           models.FunnelSummary     `json:"funnel_summary"`
	DiscoveryMetadata models.DiscoveryMetadata `json:"discovery_metadata"`
}

// DiscoveryOptions tunes a discovery run.
type DiscoveryOptions struct {
	MaxResults          int     `json:"max_results"`
	AutoEnrichmentCount int     `json:"auto_enrichment_count"`
	MinScoreThreshold   float64 `json:"min_score_threshold"`
	ApplyScoreFilter    bool    `json:"apply_score_filter"`
}

// DiscoveryResult is the payload of a completed discovery run.
type DiscoveryResult struct {
	Opportunities []models.Opportunity   `json:"opportunities"`
	Summary       models.FunnelSummary   `json:"funnel_summary"`
	Statistics    map[string]interface{} `json:"statistics,omitempty"`
}

// TransitionResult is the server's authoritative answer to a promote
// or demote intent. The local record is reconciled from these fields.
type TransitionResult struct {
	OpportunityID string               `json:"opportunity_id"`
	CategoryLevel models.CategoryLevel `json:"category_level"`
	CurrentStage  models.Stage         `json:"current_stage"`
	Message       string               `json:"message"`
}

// NotesResult echoes back the stored note.
type NotesResult struct {
	OpportunityID string `json:"opportunity_id"`
	Notes         string `json:"notes"`
	Length        int    `json:"length"`
}

// URLDiscoveryResult summarizes a bulk website URL discovery run.
type URLDiscoveryResult struct {
	Found          int               `json:"found"`
	NotFound       int               `json:"not_found"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	URLs           map[string]string `json:"urls,omitempty"`
}
