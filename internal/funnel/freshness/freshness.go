// internal/funnel/freshness/freshness.go
package freshness

import (
	"fmt"

	"opportunity-funnel/internal/models"
)

// Presentation is the rendered staleness of a profile's last
// discovery run.
type Presentation struct {
	Icon  string `json:"icon"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Format renders discovery metadata for display. The fresh/aging/stale
// classification is owned by the remote opportunity service; nothing
// is recomputed here.
func Format(meta models.DiscoveryMetadata) Presentation {
	if meta.LastDiscoveryDate == nil {
		return Presentation{Icon: "⚪", Text: "No discoveries yet", Color: "gray"}
	}

	hours := int(meta.HoursSinceDiscovery)

	switch meta.FreshnessStatus {
	case models.FreshnessFresh:
		return Presentation{
			Icon:  "🟢",
			Text:  fmt.Sprintf("Fresh (%dh ago)", hours),
			Color: "green",
		}
	case models.FreshnessAging:
		return Presentation{
			Icon:  "🟡",
			Text:  fmt.Sprintf("%dh ago", hours),
			Color: "yellow",
		}
	case models.FreshnessStale:
		if hours >= 24 {
			return Presentation{
				Icon:  "🔴",
				Text:  fmt.Sprintf("Stale (%dd ago)", hours/24),
				Color: "red",
			}
		}
		return Presentation{
			Icon:  "🔴",
			Text:  fmt.Sprintf("%dh ago", hours),
			Color: "red",
		}
	default:
		return Presentation{Icon: "⚪", Text: "No discoveries yet", Color: "gray"}
	}
}
