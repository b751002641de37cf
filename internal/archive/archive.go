// internal/archive/archive.go
package archive

import (
	"context"

	"opportunity-funnel/internal/models"
)

// Archive bundles the cost ledger and the result index behind one
// sink. Either half may be nil when its backend is not configured.
type Archive struct {
	ledger *Ledger
	index  *ResultIndex
}

func New(ledger *Ledger, index *ResultIndex) *Archive {
	return &Archive{ledger: ledger, index: index}
}

// RecordAnalysis appends the analysis to the durable cost ledger.
func (a *Archive) RecordAnalysis(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.RecordAnalysis(ctx, profile, result)
}

// IndexResult writes the analysis payload to the search index.
func (a *Archive) IndexResult(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error {
	if a.index == nil {
		return nil
	}
	return a.index.IndexResult(ctx, profile, result)
}
