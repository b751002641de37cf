package opportunityapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-funnel/internal/common/config"
	funnelerrors "opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.RemoteServiceConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 2000,
	}, logger.NewTestLogger(t))
	return client, server
}

var testProfile = models.ProfileContext{ProfileID: "profile-1"}

// ==========================
// Fetch Tests
// ==========================

func TestClient_FetchOpportunities(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunities": []map[string]interface{}{
				{"opportunity_id": "opp-1", "organization_name": "Alpha Foundation", "category_level": "review", "current_stage": "discovery"},
			},
			"funnel_summary": map[string]interface{}{"total": 1},
		})
	})

	result, err := client.FetchOpportunities(context.Background(), testProfile, models.StageDiscovery)
	require.NoError(t, err)

	assert.Equal(t, "/api/profiles/profile-1/opportunities", gotPath)
	assert.Equal(t, "stage=discovery", gotQuery)
	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, models.CategoryReview, result.Opportunities[0].CategoryLevel)
}

func TestClient_FetchOpportunities_MalformedEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// Missing the required funnel_summary.
		json.NewEncoder(w).Encode(map[string]interface{}{"opportunities": []interface{}{}})
	})

	_, err := client.FetchOpportunities(context.Background(), testProfile, "")
	assert.Equal(t, funnelerrors.ErrCodeResponseValidationFailed, funnelerrors.CodeOf(err))
}

// ==========================
// Transition Tests
// ==========================

func TestClient_Promote(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunity_id": "opp-1",
			"category_level": "qualified",
			"current_stage":  "intelligence",
			"message":        "advanced",
		})
	})

	result, err := client.Promote(context.Background(), testProfile, "opp-1")
	require.NoError(t, err)

	assert.Equal(t, "/api/profiles/profile-1/opportunities/opp-1/promote", gotPath)
	assert.Equal(t, models.CategoryQualified, result.CategoryLevel)
	assert.Equal(t, models.StageIntelligence, result.CurrentStage)
}

func TestClient_Promote_UnknownCategoryRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunity_id": "opp-1",
			"category_level": "platinum",
			"current_stage":  "discovery",
		})
	})

	_, err := client.Promote(context.Background(), testProfile, "opp-1")

	// A level outside the known set must never reach local state.
	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeResponseValidationFailed, funnelerrors.CodeOf(err))
}

func TestClient_PromoteWithNotes_SendsNote(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunity_id": "opp-1",
			"category_level": "qualified",
			"current_stage":  "intelligence",
		})
	})

	_, err := client.PromoteWithNotes(context.Background(), testProfile, "opp-1", "board contact available")
	require.NoError(t, err)
	assert.Equal(t, "board contact available", gotBody["notes"])
}

func TestClient_Demote_TimeoutMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.RemoteServiceConfig{BaseURL: server.URL, Timeout: 20}, logger.NewTestLogger(t))

	_, err := client.Demote(context.Background(), testProfile, "opp-1")

	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeRemoteTimeout, funnelerrors.CodeOf(err))
	assert.True(t, funnelerrors.IsRetryable(err))
}

// ==========================
// Discovery Tests
// ==========================

func TestClient_RunDiscovery_InvalidOptionsRejectedLocally(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.RunDiscovery(context.Background(), testProfile, DiscoveryOptions{MaxResults: -5})

	require.Error(t, err)
	assert.Equal(t, 0, requests, "invalid options never leave the process")
}

func TestClient_RunDiscovery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profiles/profile-1/discovery", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunities":  []map[string]interface{}{{"opportunity_id": "opp-1"}},
			"funnel_summary": map[string]interface{}{"total": 1},
			"statistics":     map[string]interface{}{"sources_checked": 4},
		})
	})

	result, err := client.RunDiscovery(context.Background(), testProfile, DiscoveryOptions{MaxResults: 50})
	require.NoError(t, err)
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, float64(4), result.Statistics["sources_checked"])
}

// ==========================
// Notes Tests
// ==========================

func TestClient_PatchNotes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profiles/profile-1/opportunities/opp-1/notes", r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunity_id": "opp-1",
			"notes":          body["notes"],
			"length":         len(body["notes"]),
		})
	})

	result, err := client.PatchNotes(context.Background(), testProfile, "opp-1", "follow up in Q4")
	require.NoError(t, err)
	assert.Equal(t, "follow up in Q4", result.Notes)
	assert.Equal(t, len("follow up in Q4"), result.Length)
}

// ==========================
// URL Discovery Tests
// ==========================

func TestClient_DiscoverURLs(t *testing.T) {
	var gotBody map[string]bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"found":           7,
			"not_found":       2,
			"elapsed_seconds": 3.5,
		})
	})

	result, err := client.DiscoverURLs(context.Background(), testProfile, true)
	require.NoError(t, err)

	assert.True(t, gotBody["excludeLowPriority"])
	assert.Equal(t, 7, result.Found)
	assert.Equal(t, 2, result.NotFound)
}
