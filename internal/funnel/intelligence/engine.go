// internal/funnel/intelligence/engine.go
package intelligence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/metrics"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/analysisapi"
	"opportunity-funnel/internal/store"
)

// AnalysisService is the slice of the remote analysis service the
// engine needs.
type AnalysisService interface {
	Analyze(ctx context.Context, profile models.ProfileContext, opportunity models.Opportunity, depth string) (*analysisapi.AnalyzeResult, error)
	GenerateReport(ctx context.Context, analysis map[string]interface{}, template string) (*analysisapi.ReportResult, error)
	Export(ctx context.Context, result models.IntelligenceResult, format string) (*analysisapi.ExportResult, error)
}

// Archiver records completed analyses durably. Archive failures are
// logged and never fail the analysis that triggered them.
type Archiver interface {
	RecordAnalysis(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error
	IndexResult(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error
}

// Notifier delivers best-effort batch summaries and spend alerts.
type Notifier interface {
	BatchCompleted(ctx context.Context, operation string, result *models.BatchResult) error
	SpendAlert(ctx context.Context, profile models.ProfileContext, actual, threshold float64) error
}

// SelectionSource exposes the staged selection to AnalyzeSelected.
type SelectionSource interface {
	Selected() []models.SelectionEntry
}

// AnalyzeOptions carries per-call overrides for a single analysis.
type AnalyzeOptions struct {
	Depth   string
	Profile models.ProfileContext
}

// Engine maps depth tiers to paid analysis calls and keeps the cost
// ledger. Estimated cost (tier price times candidate count) and actual
// cost (sum of successful analyses) are separate figures and are never
// conflated.
type Engine struct {
	mu          sync.Mutex
	results     map[string]*models.IntelligenceResult
	actualCost  float64
	defaultTier string
	profile     models.ProfileContext
	alerted     bool

	tiers     models.TierCatalog
	remote    AnalysisService
	store     *store.Store
	selection SelectionSource
	archive   Archiver
	notifier  Notifier
	funnel    config.FunnelConfig
	logger    logger.Logger
}

// NewEngine builds an engine over the given tier catalog. The archive
// and notifier are optional; pass nil to disable them.
func NewEngine(tiers models.TierCatalog, remote AnalysisService, s *store.Store, sel SelectionSource, archive Archiver, notifier Notifier, funnel config.FunnelConfig, log logger.Logger) *Engine {
	e := &Engine{
		results:   make(map[string]*models.IntelligenceResult),
		tiers:     tiers,
		remote:    remote,
		store:     s,
		selection: sel,
		archive:   archive,
		notifier:  notifier,
		funnel:    funnel,
		logger:    log.WithFields(map[string]interface{}{"component": "intelligence"}),
	}
	if cheapest, ok := tiers.Cheapest(); ok {
		e.defaultTier = cheapest.ID
	}
	return e
}

// SetProfile stores the engine's current billing profile, used when a
// call does not pass one explicitly.
func (e *Engine) SetProfile(profile models.ProfileContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = profile
	e.alerted = false
}

// SelectTier sets the default depth tier for subsequent analysis calls.
func (e *Engine) SelectTier(tierID string) error {
	if _, ok := e.tiers.ByID(tierID); !ok {
		return errors.NewUnknownDepthTierError(tierID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultTier = tierID
	return nil
}

// SelectedTier returns the current default tier.
func (e *Engine) SelectedTier() models.DepthTier {
	e.mu.Lock()
	defer e.mu.Unlock()
	tier, _ := e.tiers.ByID(e.defaultTier)
	return tier
}

// Tiers returns the catalog, cheapest first.
func (e *Engine) Tiers() models.TierCatalog {
	return e.tiers
}

// EstimatedCost prices a hypothetical run of count analyses at the
// given tier (default tier when empty).
func (e *Engine) EstimatedCost(count int, tierID string) (float64, error) {
	if tierID == "" {
		tierID = e.SelectedTier().ID
	}
	tier, ok := e.tiers.ByID(tierID)
	if !ok {
		return 0, errors.NewUnknownDepthTierError(tierID)
	}
	return float64(count) * tier.Price, nil
}

// ActualCost returns the sum of all successful analyses' costs.
// Failed analyses never contribute.
func (e *Engine) ActualCost() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actualCost
}

// Result returns the stored intelligence result for an opportunity.
func (e *Engine) Result(opportunityID string) (models.IntelligenceResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.results[opportunityID]
	if !ok {
		return models.IntelligenceResult{}, false
	}
	return *r, true
}

// resolveDepth applies the override chain: explicit arg, then the
// selected default tier.
func (e *Engine) resolveDepth(explicit string) (models.DepthTier, error) {
	id := explicit
	if id == "" {
		e.mu.Lock()
		id = e.defaultTier
		e.mu.Unlock()
	}
	tier, ok := e.tiers.ByID(id)
	if !ok {
		return models.DepthTier{}, errors.NewUnknownDepthTierError(id)
	}
	return tier, nil
}

// resolveProfile applies the override chain: explicit arg, then the
// engine's current profile. Paid analysis must be billable, so an
// unresolvable profile aborts before any request.
func (e *Engine) resolveProfile(explicit models.ProfileContext) (models.ProfileContext, error) {
	if !explicit.IsZero() {
		return explicit, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profile.IsZero() {
		return models.ProfileContext{}, errors.NewMissingProfileError()
	}
	return e.profile, nil
}

// AnalyzeOpportunity runs one paid analysis and stores the result
// keyed by opportunity id. Re-analysis overwrites the payload; the
// earlier run's cost stays in the ledger.
func (e *Engine) AnalyzeOpportunity(ctx context.Context, opportunity models.Opportunity, opts AnalyzeOptions) (*models.IntelligenceResult, error) {
	const op = "analyze_opportunity"

	if opportunity.OpportunityID == "" {
		err := errors.NewMissingOpportunityIDError(opportunity.OrganizationName)
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeMissingOpportunityID)).Inc()
		return nil, err
	}

	tier, err := e.resolveDepth(opts.Depth)
	if err != nil {
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	profile, err := e.resolveProfile(opts.Profile)
	if err != nil {
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	start := time.Now()
	analyzed, err := e.remote.Analyze(ctx, profile, opportunity, tier.ID)
	if err != nil {
		e.logger.WithError(err).Warn("analysis failed", map[string]interface{}{
			"opportunityId": opportunity.OpportunityID,
			"depth":         tier.ID,
		})
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	result := &models.IntelligenceResult{
		Opportunity: &opportunity,
		Depth:       tier.ID,
		Analysis:    analyzed.Analysis,
		Cost:        analyzed.Cost,
		Timestamp:   time.Now().UTC(),
	}

	e.mu.Lock()
	e.results[opportunity.OpportunityID] = result
	e.actualCost += analyzed.Cost
	total := e.actualCost
	e.mu.Unlock()

	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	metrics.FunnelOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.AnalysisSpend.WithLabelValues(tier.ID).Add(analyzed.Cost)

	e.archiveResult(ctx, profile, *result)
	e.checkSpendAlert(ctx, profile, total)

	e.logger.Info("analysis complete", map[string]interface{}{
		"opportunityId": opportunity.OpportunityID,
		"tier":          tier.Name,
		"cost":          analyzed.Cost,
		"actualCost":    total,
	})
	return result, nil
}

// AnalyzeAll analyzes the full discovery set sequentially, one item at
// a time in store order. Per-item failures are logged and counted; the
// batch continues and reports only successful items' costs.
func (e *Engine) AnalyzeAll(ctx context.Context, depth string) *models.BatchResult {
	return e.analyzeBatch(ctx, "analyze_all", e.store.ByStage(models.StageDiscovery), depth)
}

// AnalyzeSelected analyzes the currently staged selection sequentially
// in selection order.
func (e *Engine) AnalyzeSelected(ctx context.Context) *models.BatchResult {
	entries := e.selection.Selected()
	set := make([]models.Opportunity, 0, len(entries))
	for _, entry := range entries {
		if opp, ok := e.store.Get(entry.OpportunityID); ok {
			set = append(set, opp)
		}
	}
	return e.analyzeBatch(ctx, "analyze_selected", set, "")
}

func (e *Engine) analyzeBatch(ctx context.Context, operation string, set []models.Opportunity, depth string) *models.BatchResult {
	result := &models.BatchResult{BatchID: uuid.NewString()}

	// Batches never raise, so items beyond the configured limit are
	// reported in the tally instead of being silently skipped.
	if max := e.funnel.MaxBatchSize; max > 0 && len(set) > max {
		capErr := errors.NewBatchTooLargeError(len(set), max)
		for _, opp := range set[max:] {
			result.RecordFailure(opp.OpportunityID, capErr)
		}
		e.logger.Warn("analysis batch capped at configured limit", map[string]interface{}{
			"operation": operation,
			"count":     len(set),
			"limit":     max,
		})
		set = set[:max]
	}

	log := e.logger.WithFields(map[string]interface{}{
		"batchId":   result.BatchID,
		"operation": operation,
		"count":     len(set),
	})
	log.Info("starting analysis batch", nil)

	for _, opp := range set {
		analyzed, err := e.AnalyzeOpportunity(ctx, opp, AnalyzeOptions{Depth: depth})
		if err != nil {
			result.RecordFailure(opp.OpportunityID, err)
			continue
		}
		result.Completed++
		result.TotalCost += analyzed.Cost
	}

	log.Info("analysis batch finished", map[string]interface{}{
		"completed": result.Completed,
		"failed":    result.Failed,
		"totalCost": result.TotalCost,
	})

	if e.notifier != nil {
		if err := e.notifier.BatchCompleted(ctx, operation, result); err != nil {
			log.WithError(err).Warn("batch notification failed", nil)
		}
	}
	return result
}

// GenerateReport renders a stored analysis with the given template and
// attaches the report to the result.
func (e *Engine) GenerateReport(ctx context.Context, opportunityID, template string) (map[string]interface{}, error) {
	e.mu.Lock()
	stored, ok := e.results[opportunityID]
	e.mu.Unlock()
	if !ok {
		return nil, errors.NewMissingOpportunityIDError(opportunityID)
	}

	report, err := e.remote.GenerateReport(ctx, stored.Analysis, template)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	stored.Report = report.Report
	e.mu.Unlock()
	return report.Report, nil
}

// Export packages a stored intelligence record and attaches the
// artifact reference to the result.
func (e *Engine) Export(ctx context.Context, opportunityID, format string) (string, error) {
	e.mu.Lock()
	stored, ok := e.results[opportunityID]
	record := models.IntelligenceResult{}
	if ok {
		record = *stored
	}
	e.mu.Unlock()
	if !ok {
		return "", errors.NewMissingOpportunityIDError(opportunityID)
	}

	exported, err := e.remote.Export(ctx, record, format)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	stored.Package = exported.Reference
	e.mu.Unlock()
	return exported.Reference, nil
}

func (e *Engine) archiveResult(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) {
	if e.archive == nil {
		return
	}
	if err := e.archive.RecordAnalysis(ctx, profile, result); err != nil {
		e.logger.WithError(err).Warn("cost ledger write failed", map[string]interface{}{
			"opportunityId": result.Opportunity.OpportunityID,
		})
	}
	if err := e.archive.IndexResult(ctx, profile, result); err != nil {
		e.logger.WithError(err).Warn("result indexing failed", map[string]interface{}{
			"opportunityId": result.Opportunity.OpportunityID,
		})
	}
}

func (e *Engine) checkSpendAlert(ctx context.Context, profile models.ProfileContext, total float64) {
	threshold := e.funnel.SpendAlertDollars
	if e.notifier == nil || threshold <= 0 || total < threshold {
		return
	}

	e.mu.Lock()
	already := e.alerted
	e.alerted = true
	e.mu.Unlock()
	if already {
		return
	}

	if err := e.notifier.SpendAlert(ctx, profile, total, threshold); err != nil {
		e.logger.WithError(err).Warn("spend alert failed", nil)
	}
}
