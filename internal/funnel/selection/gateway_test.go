package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	funnelerrors "opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/opportunityapi"
	"opportunity-funnel/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeGatewayService struct {
	promoted   []models.SelectionEntry
	failures   map[string]error
	fetchCalls int
	fetchSet   []models.Opportunity
}

func (f *fakeGatewayService) PromoteWithNotes(_ context.Context, _ models.ProfileContext, id, note string) (*opportunityapi.TransitionResult, error) {
	if err, ok := f.failures[id]; ok {
		return nil, err
	}
	f.promoted = append(f.promoted, models.SelectionEntry{OpportunityID: id, Note: note})
	return &opportunityapi.TransitionResult{
		OpportunityID: id,
		CategoryLevel: models.CategoryQualified,
		CurrentStage:  models.StageIntelligence,
	}, nil
}

func (f *fakeGatewayService) FetchOpportunities(_ context.Context, _ models.ProfileContext, _ models.Stage) (*opportunityapi.FetchResult, error) {
	f.fetchCalls++
	return &opportunityapi.FetchResult{Opportunities: f.fetchSet}, nil
}

func newTestGateway(t *testing.T, remote *fakeGatewayService) (*Gateway, *store.Store) {
	s := store.New()
	s.ReplaceAll([]models.Opportunity{
		{OpportunityID: "opp-1", CategoryLevel: models.CategoryQualified, CurrentStage: models.StageDiscovery},
		{OpportunityID: "opp-2", CategoryLevel: models.CategoryReview, CurrentStage: models.StageDiscovery},
	})
	return NewGateway(s, remote, logger.NewTestLogger(t)), s
}

var testProfile = models.ProfileContext{ProfileID: "profile-1"}

// ==========================
// Selection Tests
// ==========================

func TestGateway_Toggle(t *testing.T) {
	g, _ := newTestGateway(t, &fakeGatewayService{})

	assert.True(t, g.Toggle("opp-1"))
	assert.True(t, g.IsSelected("opp-1"))
	assert.Equal(t, 1, g.Count())

	// Deselecting removes the entry and its note.
	g.AddNotes("opp-1", "looks promising")
	assert.False(t, g.Toggle("opp-1"))
	assert.False(t, g.IsSelected("opp-1"))
	assert.Equal(t, 0, g.Count())

	assert.True(t, g.Toggle("opp-1"))
	entries := g.Selected()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Note, "reselection starts with an empty note")
}

func TestGateway_Toggle_EmptyIDIgnored(t *testing.T) {
	g, _ := newTestGateway(t, &fakeGatewayService{})
	assert.False(t, g.Toggle(""))
	assert.Equal(t, 0, g.Count())
}

func TestGateway_AddNotes(t *testing.T) {
	g, _ := newTestGateway(t, &fakeGatewayService{})
	g.Toggle("opp-1")

	g.AddNotes("opp-1", "first pass")
	g.AddNotes("opp-1", "second pass overwrites")
	g.AddNotes("opp-2", "not selected, ignored")

	entries := g.Selected()
	require.Len(t, entries, 1)
	assert.Equal(t, "second pass overwrites", entries[0].Note)
}

func TestGateway_Selected_PreservesSelectionOrder(t *testing.T) {
	g, _ := newTestGateway(t, &fakeGatewayService{})
	g.Toggle("opp-2")
	g.Toggle("opp-1")

	entries := g.Selected()
	require.Len(t, entries, 2)
	assert.Equal(t, "opp-2", entries[0].OpportunityID)
	assert.Equal(t, "opp-1", entries[1].OpportunityID)
}

// ==========================
// Proceed Tests
// ==========================

func TestGateway_Proceed_EmptySelection(t *testing.T) {
	remote := &fakeGatewayService{}
	g, _ := newTestGateway(t, remote)

	_, err := g.Proceed(context.Background(), testProfile)

	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeEmptySelection, funnelerrors.CodeOf(err))
	assert.Empty(t, remote.promoted, "rejected before any request")
	assert.Equal(t, 0, remote.fetchCalls)
}

func TestGateway_Proceed_PromotesWithNotesAndRefreshes(t *testing.T) {
	remote := &fakeGatewayService{
		fetchSet: []models.Opportunity{
			{OpportunityID: "opp-1", CategoryLevel: models.CategoryQualified, CurrentStage: models.StageIntelligence},
			{OpportunityID: "opp-2", CategoryLevel: models.CategoryReview, CurrentStage: models.StageDiscovery},
		},
	}
	g, s := newTestGateway(t, remote)
	g.Toggle("opp-1")
	g.AddNotes("opp-1", "board contact available")

	result, err := g.Proceed(context.Background(), testProfile)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, remote.promoted, 1)
	assert.Equal(t, "board contact available", remote.promoted[0].Note)

	// Cleared and re-synced from the server.
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, 1, remote.fetchCalls)
	refreshed, _ := s.Get("opp-1")
	assert.Equal(t, models.StageIntelligence, refreshed.CurrentStage)
}

func TestGateway_Proceed_ClearsUnconditionallyOnPartialFailure(t *testing.T) {
	remote := &fakeGatewayService{
		failures: map[string]error{
			"opp-2": funnelerrors.NewRemoteTimeoutError("transition_promote"),
		},
	}
	g, _ := newTestGateway(t, remote)
	g.Toggle("opp-1")
	g.Toggle("opp-2")

	result, err := g.Proceed(context.Background(), testProfile)
	require.NoError(t, err, "batches resolve with a tally, they do not raise")

	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, g.Count(), "gateway clears even on partial failure")
	assert.Empty(t, g.Selected())
	assert.Equal(t, 1, remote.fetchCalls, "store still refreshed")
}
