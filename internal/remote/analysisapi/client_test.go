package analysisapi

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.RemoteServiceConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 2000,
	}, logger.NewTestLogger(t))
}

var testProfile = models.ProfileContext{ProfileID: "profile-1"}

// ==========================
// Screen Tests
// ==========================

func TestClient_Screen(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/screen", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"recommended": []map[string]interface{}{
				{"opportunity_id": "opp-1", "category_level": "review", "current_stage": "discovery"},
			},
			"cost": 0.08,
		})
	})

	set := []models.Opportunity{
		{OpportunityID: "opp-1"},
		{OpportunityID: "opp-2"},
	}
	result, err := client.Screen(context.Background(), testProfile, set, models.ScreeningFast)
	require.NoError(t, err)

	assert.Equal(t, "profile-1", gotBody["profile_id"])
	assert.Equal(t, "fast", gotBody["mode"])
	require.Len(t, result.Recommended, 1)
	assert.Equal(t, "opp-1", result.Recommended[0].OpportunityID)
	assert.Equal(t, 0.08, result.Cost)
}

func TestClient_Screen_MissingCostRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"recommended": []interface{}{},
		})
	})

	_, err := client.Screen(context.Background(), testProfile, []models.Opportunity{{OpportunityID: "opp-1"}}, models.ScreeningFast)

	// A pass without a cost figure cannot feed spend reporting.
	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeResponseValidationFailed, funnelerrors.CodeOf(err))
}

// ==========================
// Analyze Tests
// ==========================

func TestClient_Analyze(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"analysis": map[string]interface{}{"summary": "strong program alignment"},
			"cost":     5.00,
		})
	})

	result, err := client.Analyze(context.Background(), testProfile,
		models.Opportunity{OpportunityID: "opp-1"}, "standard")
	require.NoError(t, err)

	assert.Equal(t, "standard", gotBody["depth"])
	assert.Equal(t, "strong program alignment", result.Analysis["summary"])
	assert.Equal(t, 5.00, result.Cost)
}

func TestClient_Analyze_NegativeCostRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"analysis": map[string]interface{}{},
			"cost":     -1.0,
		})
	})

	_, err := client.Analyze(context.Background(), testProfile,
		models.Opportunity{OpportunityID: "opp-1"}, "standard")
	assert.Equal(t, funnelerrors.ErrCodeResponseValidationFailed, funnelerrors.CodeOf(err))
}

func TestClient_Analyze_TimeoutMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.RemoteServiceConfig{BaseURL: server.URL, Timeout: 20}, logger.NewTestLogger(t))

	_, err := client.Analyze(context.Background(), testProfile,
		models.Opportunity{OpportunityID: "opp-1"}, "standard")

	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeRemoteTimeout, funnelerrors.CodeOf(err))
	assert.True(t, funnelerrors.IsRetryable(err))
}

func TestClient_Analyze_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream model unavailable", http.StatusBadGateway)
	})

	_, err := client.Analyze(context.Background(), testProfile,
		models.Opportunity{OpportunityID: "opp-1"}, "standard")

	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeRemoteServiceError, funnelerrors.CodeOf(err))
}

// ==========================
// Report and Export Tests
// ==========================

func TestClient_GenerateReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/report", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"report": map[string]interface{}{"title": "Executive Brief"},
		})
	})

	result, err := client.GenerateReport(context.Background(),
		map[string]interface{}{"summary": "details"}, "executive")
	require.NoError(t, err)
	assert.Equal(t, "Executive Brief", result.Report["title"])
}

func TestClient_Export(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reference": "exports/opp-1.pdf",
			"format":    "pdf",
		})
	})

	record := models.IntelligenceResult{Opportunity: &models.Opportunity{OpportunityID: "opp-1"}}
	result, err := client.Export(context.Background(), record, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "exports/opp-1.pdf", result.Reference)
	assert.Equal(t, "pdf", result.Format)
}

func TestClient_Export_EmptyReferenceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"reference": ""})
	})

	_, err := client.Export(context.Background(), models.IntelligenceResult{}, "pdf")
	assert.Equal(t, funnelerrors.ErrCodeResponseValidationFailed, funnelerrors.CodeOf(err))
}
