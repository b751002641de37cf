// internal/funnel/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/metrics"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/opportunityapi"
	"opportunity-funnel/internal/store"
)

// DiscoveryService is the slice of the remote opportunity service the
// pipeline needs to populate and refresh the store.
type DiscoveryService interface {
	FetchOpportunities(ctx context.Context, profile models.ProfileContext, stage models.Stage) (*opportunityapi.FetchResult, error)
	RunDiscovery(ctx context.Context, profile models.ProfileContext, opts opportunityapi.DiscoveryOptions) (*opportunityapi.DiscoveryResult, error)
	DiscoverURLs(ctx context.Context, profile models.ProfileContext, excludeLowPriority bool) (*opportunityapi.URLDiscoveryResult, error)
}

// Snapshotter persists the last-synced set so a restarted process can
// render before its first refresh.
type Snapshotter interface {
	Save(ctx context.Context, profile models.ProfileContext, s *store.Store)
	Restore(ctx context.Context, profile models.ProfileContext, s *store.Store) bool
}

// Pipeline populates the opportunity store from the remote service and
// runs discovery. It is the only writer of the full set; funnel
// components mutate individual records through their own operations.
type Pipeline struct {
	remote   DiscoveryService
	store    *store.Store
	snapshot Snapshotter
	logger   logger.Logger
}

// New builds a pipeline. The snapshotter is optional; pass nil to
// disable snapshot caching.
func New(remote DiscoveryService, s *store.Store, snapshot Snapshotter, log logger.Logger) *Pipeline {
	return &Pipeline{
		remote:   remote,
		store:    s,
		snapshot: snapshot,
		logger:   log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Sync replaces the store with the server's current view of the
// profile, optionally filtered by stage.
func (p *Pipeline) Sync(ctx context.Context, profile models.ProfileContext, stage models.Stage) (models.FunnelSummary, error) {
	const op = "sync"

	start := time.Now()
	fetched, err := p.remote.FetchOpportunities(ctx, profile, stage)
	if err != nil {
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return models.FunnelSummary{}, err
	}

	p.store.ReplaceAll(fetched.Opportunities)
	p.store.SetDiscoveryMetadata(fetched.DiscoveryMetadata)
	if p.snapshot != nil {
		p.snapshot.Save(ctx, profile, p.store)
	}

	summary := p.store.Summary()
	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	metrics.FunnelOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	p.logger.Info("store synced", map[string]interface{}{
		"profileId":  profile.ProfileID,
		"totalFound": summary.TotalFound,
	})
	return summary, nil
}

// RestoreSnapshot loads the last cached set, if any, so the caller has
// something to render before the first sync completes.
func (p *Pipeline) RestoreSnapshot(ctx context.Context, profile models.ProfileContext) bool {
	if p.snapshot == nil {
		return false
	}
	return p.snapshot.Restore(ctx, profile, p.store)
}

// RunDiscovery starts a discovery run and replaces the store with its
// result.
func (p *Pipeline) RunDiscovery(ctx context.Context, profile models.ProfileContext, opts opportunityapi.DiscoveryOptions) (models.FunnelSummary, error) {
	const op = "run_discovery"

	start := time.Now()
	result, err := p.remote.RunDiscovery(ctx, profile, opts)
	if err != nil {
		p.logger.WithError(err).Warn("discovery run failed", map[string]interface{}{
			"profileId": profile.ProfileID,
		})
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return models.FunnelSummary{}, err
	}

	p.store.ReplaceAll(result.Opportunities)

	// The discovery payload carries no run metadata; fetch it so the
	// freshness display reflects this run, not the previous one.
	if fetched, err := p.remote.FetchOpportunities(ctx, profile, ""); err != nil {
		p.logger.WithError(err).Warn("post-discovery metadata refresh failed", map[string]interface{}{
			"profileId": profile.ProfileID,
		})
	} else {
		p.store.SetDiscoveryMetadata(fetched.DiscoveryMetadata)
	}

	if p.snapshot != nil {
		p.snapshot.Save(ctx, profile, p.store)
	}

	summary := p.store.Summary()
	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	metrics.FunnelOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	p.logger.Info("discovery finished", map[string]interface{}{
		"profileId":  profile.ProfileID,
		"totalFound": summary.TotalFound,
	})
	return summary, nil
}

// DiscoverURLs runs bulk website URL discovery and re-syncs the store
// so the found URLs and enrichment flags land on the records.
func (p *Pipeline) DiscoverURLs(ctx context.Context, profile models.ProfileContext, excludeLowPriority bool) (*opportunityapi.URLDiscoveryResult, error) {
	const op = "discover_urls"

	result, err := p.remote.DiscoverURLs(ctx, profile, excludeLowPriority)
	if err != nil {
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	if _, err := p.Sync(ctx, profile, ""); err != nil {
		p.logger.WithError(err).Warn("post-discovery sync failed", nil)
	}

	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	p.logger.Info("url discovery finished", map[string]interface{}{
		"found":    result.Found,
		"notFound": result.NotFound,
	})
	return result, nil
}
