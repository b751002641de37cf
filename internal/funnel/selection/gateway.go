// internal/funnel/selection/gateway.go
package selection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/metrics"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/opportunityapi"
	"opportunity-funnel/internal/store"
)

// GatewayService is the slice of the remote opportunity service the
// gateway needs: the promotion-with-notes path plus a refresh after a
// mutating batch.
type GatewayService interface {
	PromoteWithNotes(ctx context.Context, profile models.ProfileContext, opportunityID, note string) (*opportunityapi.TransitionResult, error)
	FetchOpportunities(ctx context.Context, profile models.ProfileContext, stage models.Stage) (*opportunityapi.FetchResult, error)
}

// Gateway is the human-in-the-loop staging area between discovery and
// paid analysis. It is the only owner of selection entries; notes live
// here until promotion succeeds, never on the opportunity record.
type Gateway struct {
	mu      sync.Mutex
	entries map[string]string
	order   []string

	store  *store.Store
	remote GatewayService
	logger logger.Logger
}

func NewGateway(s *store.Store, remote GatewayService, log logger.Logger) *Gateway {
	return &Gateway{
		entries: make(map[string]string),
		store:   s,
		remote:  remote,
		logger:  log.WithFields(map[string]interface{}{"component": "selection_gateway"}),
	}
}

// Toggle flips membership for the opportunity. Selecting stages it
// with an empty note; deselecting drops the entry and its note.
func (g *Gateway) Toggle(opportunityID string) bool {
	if opportunityID == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, selected := g.entries[opportunityID]; selected {
		delete(g.entries, opportunityID)
		for i, id := range g.order {
			if id == opportunityID {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
		return false
	}

	g.entries[opportunityID] = ""
	g.order = append(g.order, opportunityID)
	return true
}

// AddNotes attaches or overwrites the note for an already-selected
// entry. Unselected ids are ignored.
func (g *Gateway) AddNotes(opportunityID, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, selected := g.entries[opportunityID]; !selected {
		g.logger.Debug("notes for unselected opportunity ignored", map[string]interface{}{
			"opportunityId": opportunityID,
		})
		return
	}
	g.entries[opportunityID] = text
}

// IsSelected reports membership.
func (g *Gateway) IsSelected(opportunityID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.entries[opportunityID]
	return ok
}

// Count returns the number of staged entries.
func (g *Gateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Selected returns the staged entries in selection order.
func (g *Gateway) Selected() []models.SelectionEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.SelectionEntry, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, models.SelectionEntry{OpportunityID: id, Note: g.entries[id]})
	}
	return out
}

// Clear drops every entry and note.
func (g *Gateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[string]string)
	g.order = nil
}

// Proceed promotes every staged entry into the intelligence stage, one
// at a time in selection order. An empty selection is rejected before
// any request. The gateway is cleared unconditionally afterward, even
// on partial failure, and the store is refreshed from the server.
func (g *Gateway) Proceed(ctx context.Context, profile models.ProfileContext) (*models.BatchResult, error) {
	const op = "proceed_to_intelligence"

	entries := g.Selected()
	if len(entries) == 0 {
		err := errors.NewEmptySelectionError()
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeEmptySelection)).Inc()
		return nil, err
	}

	result := &models.BatchResult{BatchID: uuid.NewString()}
	log := g.logger.WithFields(map[string]interface{}{
		"batchId": result.BatchID,
		"count":   len(entries),
	})
	log.Info("proceeding to intelligence", nil)

	defer func() {
		g.Clear()
		g.refresh(ctx, profile)
	}()

	for _, entry := range entries {
		if _, err := g.remote.PromoteWithNotes(ctx, profile, entry.OpportunityID, entry.Note); err != nil {
			log.WithError(err).Warn("selection promotion failed", map[string]interface{}{
				"opportunityId": entry.OpportunityID,
			})
			result.RecordFailure(entry.OpportunityID, err)
			continue
		}
		result.Completed++
	}

	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	log.Info("selection batch finished", map[string]interface{}{
		"completed": result.Completed,
		"failed":    result.Failed,
	})
	return result, nil
}

// refresh re-syncs the store from the server after a mutating batch
// instead of trusting the optimistic local view.
func (g *Gateway) refresh(ctx context.Context, profile models.ProfileContext) {
	fetched, err := g.remote.FetchOpportunities(ctx, profile, "")
	if err != nil {
		g.logger.WithError(err).Warn("post-batch refresh failed", nil)
		return
	}
	g.store.ReplaceAll(fetched.Opportunities)
	g.store.SetDiscoveryMetadata(fetched.DiscoveryMetadata)
}
