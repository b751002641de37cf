// internal/models/tier.go
package models

import "fmt"

// DepthTier is one entry of the analysis depth catalog: how much a
// single analysis at this depth costs and what it includes.
type DepthTier struct {
	ID           string   `json:"id" mapstructure:"id"`
	Name         string   `json:"name" mapstructure:"name"`
	Price        float64  `json:"price" mapstructure:"price"`
	TimeEstimate string   `json:"time_estimate" mapstructure:"time_estimate"`
	Features     []string `json:"features" mapstructure:"features"`
}

// TierCatalog is the ordered set of depth tiers, cheapest first.
type TierCatalog []DepthTier

// ByID returns the tier with the given id.
func (c TierCatalog) ByID(id string) (DepthTier, bool) {
	for _, t := range c {
		if t.ID == id {
			return t, true
		}
	}
	return DepthTier{}, false
}

// Cheapest returns the first tier of the catalog.
func (c TierCatalog) Cheapest() (DepthTier, bool) {
	if len(c) == 0 {
		return DepthTier{}, false
	}
	return c[0], true
}

// Validate enforces the catalog invariants: strictly increasing
// prices and each tier's features a superset of the previous tier's.
func (c TierCatalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("tier catalog is empty")
	}
	seen := make(map[string]bool, len(c))
	for i, t := range c {
		if t.ID == "" {
			return fmt.Errorf("tier %d has no id", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate tier id %q", t.ID)
		}
		seen[t.ID] = true
		if t.Price < 0 {
			return fmt.Errorf("tier %q has negative price", t.ID)
		}
		if i == 0 {
			continue
		}
		prev := c[i-1]
		if t.Price <= prev.Price {
			return fmt.Errorf("tier %q price %.2f not above %q price %.2f", t.ID, t.Price, prev.ID, prev.Price)
		}
		if !containsAll(t.Features, prev.Features) {
			return fmt.Errorf("tier %q features must include all features of %q", t.ID, prev.ID)
		}
	}
	return nil
}

func containsAll(features, required []string) bool {
	set := make(map[string]bool, len(features))
	for _, f := range features {
		set[f] = true
	}
	for _, r := range required {
		if !set[r] {
			return false
		}
	}
	return true
}

// DefaultTierCatalog is the compiled-in catalog used when the
// configuration does not override tiers.
func DefaultTierCatalog() TierCatalog {
	return TierCatalog{
		{
			ID:           "essentials",
			Name:         "Essentials",
			Price:        2.00,
			TimeEstimate: "2-3 min",
			Features:     []string{"financial_overview", "leadership_summary"},
		},
		{
			ID:           "standard",
			Name:         "Standard",
			Price:        5.00,
			TimeEstimate: "5-8 min",
			Features:     []string{"financial_overview", "leadership_summary", "program_breakdown", "grant_history"},
		},
		{
			ID:           "premium",
			Name:         "Premium",
			Price:        8.00,
			TimeEstimate: "10-15 min",
			Features:     []string{"financial_overview", "leadership_summary", "program_breakdown", "grant_history", "peer_comparison", "outreach_strategy"},
		},
	}
}
