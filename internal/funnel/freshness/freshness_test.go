package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"opportunity-funnel/internal/models"
)

func TestFormat(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		meta models.DiscoveryMetadata
		want Presentation
	}{
		{
			name: "never discovered",
			meta: models.DiscoveryMetadata{},
			want: Presentation{Icon: "⚪", Text: "No discoveries yet", Color: "gray"},
		},
		{
			name: "fresh",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 2,
				FreshnessStatus:     models.FreshnessFresh,
			},
			want: Presentation{Icon: "🟢", Text: "Fresh (2h ago)", Color: "green"},
		},
		{
			name: "aging",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 10,
				FreshnessStatus:     models.FreshnessAging,
			},
			want: Presentation{Icon: "🟡", Text: "10h ago", Color: "yellow"},
		},
		{
			name: "stale under a day",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 18,
				FreshnessStatus:     models.FreshnessStale,
			},
			want: Presentation{Icon: "🔴", Text: "18h ago", Color: "red"},
		},
		{
			name: "stale switches to days at 24h",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 24,
				FreshnessStatus:     models.FreshnessStale,
			},
			want: Presentation{Icon: "🔴", Text: "Stale (1d ago)", Color: "red"},
		},
		{
			name: "stale several days",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 71,
				FreshnessStatus:     models.FreshnessStale,
			},
			want: Presentation{Icon: "🔴", Text: "Stale (2d ago)", Color: "red"},
		},
		{
			name: "fractional hours truncate",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 2.9,
				FreshnessStatus:     models.FreshnessFresh,
			},
			want: Presentation{Icon: "🟢", Text: "Fresh (2h ago)", Color: "green"},
		},
		{
			name: "unknown status renders as never discovered",
			meta: models.DiscoveryMetadata{
				LastDiscoveryDate:   &now,
				HoursSinceDiscovery: 5,
				FreshnessStatus:     "unclassified",
			},
			want: Presentation{Icon: "⚪", Text: "No discoveries yet", Color: "gray"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.meta))
		})
	}
}
