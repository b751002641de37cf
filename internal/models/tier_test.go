package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		catalog TierCatalog
		wantErr string
	}{
		{
			name:    "default catalog is valid",
			catalog: DefaultTierCatalog(),
		},
		{
			name:    "empty catalog rejected",
			catalog: TierCatalog{},
			wantErr: "empty",
		},
		{
			name: "price must strictly increase",
			catalog: TierCatalog{
				{ID: "a", Price: 5, Features: []string{"x"}},
				{ID: "b", Price: 5, Features: []string{"x", "y"}},
			},
			wantErr: "price",
		},
		{
			name: "features must be a superset of cheaper tiers",
			catalog: TierCatalog{
				{ID: "a", Price: 1, Features: []string{"x"}},
				{ID: "b", Price: 2, Features: []string{"y"}},
			},
			wantErr: "features",
		},
		{
			name: "duplicate ids rejected",
			catalog: TierCatalog{
				{ID: "a", Price: 1, Features: []string{"x"}},
				{ID: "a", Price: 2, Features: []string{"x"}},
			},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestTierCatalog_ByID(t *testing.T) {
	catalog := DefaultTierCatalog()

	tier, ok := catalog.ByID("premium")
	assert.True(t, ok)
	assert.Equal(t, "Premium", tier.Name)
	assert.Equal(t, 8.00, tier.Price)

	_, ok = catalog.ByID("nonexistent")
	assert.False(t, ok)
}

func TestCategoryLevel_Rank(t *testing.T) {
	assert.Less(t, CategoryLowPriority.Rank(), CategoryConsider.Rank())
	assert.Less(t, CategoryConsider.Rank(), CategoryReview.Rank())
	assert.Less(t, CategoryReview.Rank(), CategoryQualified.Rank())
}

func TestOpportunity_Key(t *testing.T) {
	tests := []struct {
		name string
		opp  Opportunity
		want string
	}{
		{
			name: "prefers opportunity id",
			opp:  Opportunity{OpportunityID: "opp-1", TaxID: "12-3456789"},
			want: "opp-1",
		},
		{
			name: "falls back to tax id",
			opp:  Opportunity{TaxID: "12-3456789"},
			want: "12-3456789",
		},
		{
			name: "empty when neither set",
			opp:  Opportunity{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opp.Key())
		})
	}
}
