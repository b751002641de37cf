package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"opportunity-funnel/internal/models"
)

func createTestOpportunities() []models.Opportunity {
	return []models.Opportunity{
		{OpportunityID: "opp-1", OrganizationName: "Alpha Foundation", CategoryLevel: models.CategoryQualified, CurrentStage: models.StageDiscovery, WebSearchComplete: true},
		{OpportunityID: "opp-2", OrganizationName: "Beta Trust", CategoryLevel: models.CategoryReview, CurrentStage: models.StageDiscovery},
		{OpportunityID: "opp-3", OrganizationName: "Gamma Fund", CategoryLevel: models.CategoryConsider, CurrentStage: models.StageIntelligence},
		{OpportunityID: "opp-4", OrganizationName: "Delta Org", CategoryLevel: models.CategoryLowPriority, CurrentStage: models.StageDiscovery},
	}
}

func TestStore_ReplaceAll_PreservesOrder(t *testing.T) {
	s := New()
	s.ReplaceAll(createTestOpportunities())

	all := s.All()
	assert.Len(t, all, 4)
	assert.Equal(t, "opp-1", all[0].OpportunityID)
	assert.Equal(t, "opp-4", all[3].OpportunityID)
}

func TestStore_ReplaceAll_SkipsRecordsWithoutKey(t *testing.T) {
	s := New()
	s.ReplaceAll([]models.Opportunity{
		{OpportunityID: "opp-1"},
		{OrganizationName: "no identifier at all"},
		{TaxID: "12-3456789"},
	})

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("12-3456789")
	assert.True(t, ok)
}

func TestStore_Upsert_OverwritesAndAppends(t *testing.T) {
	s := New()
	s.ReplaceAll(createTestOpportunities())

	updated, _ := s.Get("opp-2")
	updated.CategoryLevel = models.CategoryQualified
	s.Upsert(updated)

	got, ok := s.Get("opp-2")
	assert.True(t, ok)
	assert.Equal(t, models.CategoryQualified, got.CategoryLevel)
	assert.Equal(t, 4, s.Len())

	s.Upsert(models.Opportunity{OpportunityID: "opp-5"})
	all := s.All()
	assert.Equal(t, "opp-5", all[4].OpportunityID)
}

func TestStore_Summary_RecomputedFromSet(t *testing.T) {
	s := New()
	s.ReplaceAll(createTestOpportunities())

	summary := s.Summary()
	assert.Equal(t, 4, summary.TotalFound)
	assert.Equal(t, 1, summary.Qualified)
	assert.Equal(t, 1, summary.Review)
	assert.Equal(t, 1, summary.Consider)
	assert.Equal(t, 1, summary.LowPriority)
	assert.Equal(t, 1, summary.EnrichmentComplete)
	assert.Equal(t, summary.TotalFound,
		summary.Qualified+summary.Review+summary.Consider+summary.LowPriority)

	// Mutating a record shows up in the next recompute.
	opp, _ := s.Get("opp-4")
	opp.CategoryLevel = models.CategoryConsider
	s.Upsert(opp)

	summary = s.Summary()
	assert.Equal(t, 2, summary.Consider)
	assert.Equal(t, 0, summary.LowPriority)
}

func TestStore_ByStage(t *testing.T) {
	s := New()
	s.ReplaceAll(createTestOpportunities())

	discovery := s.ByStage(models.StageDiscovery)
	assert.Len(t, discovery, 3)

	intelligence := s.ByStage(models.StageIntelligence)
	assert.Len(t, intelligence, 1)
	assert.Equal(t, "opp-3", intelligence[0].OpportunityID)
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	s := New()
	s.ReplaceAll(createTestOpportunities())

	opp, _ := s.Get("opp-1")
	opp.CategoryLevel = models.CategoryLowPriority

	unchanged, _ := s.Get("opp-1")
	assert.Equal(t, models.CategoryQualified, unchanged.CategoryLevel)
}
