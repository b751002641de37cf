// internal/models/opportunity.go
package models

import "time"

// CategoryLevel is the priority bucket assigned to an opportunity.
// Levels are ordered: low_priority < consider < review < qualified.
type CategoryLevel string

const (
	CategoryLowPriority CategoryLevel = "low_priority"
	CategoryConsider    CategoryLevel = "consider"
	CategoryReview      CategoryLevel = "review"
	CategoryQualified   CategoryLevel = "qualified"
)

var categoryRanks = map[CategoryLevel]int{
	CategoryLowPriority: 0,
	CategoryConsider:    1,
	CategoryReview:      2,
	CategoryQualified:   3,
}

// Rank returns the ordinal position of the level, lowest first.
// Used for sorting and the local demotion floor check only; the
// remote service decides actual transitions.
func (c CategoryLevel) Rank() int {
	return categoryRanks[c]
}

// Valid reports whether the level is one of the known buckets.
func (c CategoryLevel) Valid() bool {
	_, ok := categoryRanks[c]
	return ok
}

// Stage is the coarse workflow position of an opportunity.
type Stage string

const (
	StageDiscovery    Stage = "discovery"
	StageIntelligence Stage = "intelligence"
)

// Opportunity is a candidate organization under evaluation.
type Opportunity struct {
	OpportunityID     string                 `json:"opportunity_id"`
	TaxID             string                 `json:"tax_id,omitempty"`
	OrganizationName  string                 `json:"organization_name"`
	CategoryLevel     CategoryLevel          `json:"category_level"`
	CurrentStage      Stage                  `json:"current_stage"`
	OverallScore      float64                `json:"overall_score"`
	Revenue           float64                `json:"revenue,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	WebSearchComplete bool                   `json:"web_search_complete"`
	WebData           map[string]interface{} `json:"web_data,omitempty"`
	WebsiteURL        string                 `json:"website_url,omitempty"`
	UpdatedAt         time.Time              `json:"updated_at,omitempty"`
}

// Key returns the identifier the store indexes by. The tax ID is a
// display-time fallback for records loaded from incomplete data;
// mutating operations require a real OpportunityID.
func (o *Opportunity) Key() string {
	if o.OpportunityID != "" {
		return o.OpportunityID
	}
	return o.TaxID
}

// FunnelSummary holds aggregate per-category counts for a profile.
// Always recomputed from the opportunity set, never patched in place.
type FunnelSummary struct {
	TotalFound         int `json:"total_found"`
	Qualified          int `json:"qualified"`
	Review             int `json:"review"`
	Consider           int `json:"consider"`
	LowPriority        int `json:"low_priority"`
	EnrichmentComplete int `json:"enrichment_complete"`
}

// FreshnessStatus is the staleness classification computed by the
// remote opportunity service. Local code formats it, never derives it.
type FreshnessStatus string

const (
	FreshnessUnknown FreshnessStatus = "unknown"
	FreshnessFresh   FreshnessStatus = "fresh"
	FreshnessAging   FreshnessStatus = "aging"
	FreshnessStale   FreshnessStatus = "stale"
)

// DiscoveryMetadata describes the most recent discovery run for a
// profile. Overwritten wholesale on each run.
type DiscoveryMetadata struct {
	LastDiscoveryDate   *time.Time      `json:"last_discovery_date,omitempty"`
	HoursSinceDiscovery float64         `json:"hours_since_discovery"`
	FreshnessStatus     FreshnessStatus `json:"freshness_status"`
	ShouldRefresh       bool            `json:"should_refresh"`
	TotalDiscoveriesRun int             `json:"total_discoveries_run"`
}

// ProfileContext identifies the billing profile an operation runs
// under. Threaded explicitly through call chains.
type ProfileContext struct {
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name,omitempty"`
}

// IsZero reports whether no profile is set.
func (p ProfileContext) IsZero() bool {
	return p.ProfileID == ""
}
