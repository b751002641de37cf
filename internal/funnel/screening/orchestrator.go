// internal/funnel/screening/orchestrator.go
package screening

import (
	"context"
	"time"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/metrics"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/analysisapi"
)

// Screener is the slice of the remote analysis service screening needs.
type Screener interface {
	Screen(ctx context.Context, profile models.ProfileContext, opportunities []models.Opportunity, mode models.ScreeningMode) (*analysisapi.ScreenResult, error)
}

// StageResult is the outcome of a single screening pass.
type StageResult struct {
	Mode        models.ScreeningMode `json:"mode"`
	InputCount  int                  `json:"input_count"`
	Recommended []models.Opportunity `json:"recommended"`
	Cost        float64              `json:"cost"`
}

// BatchScreenResult aggregates the two-pass funnel.
type BatchScreenResult struct {
	Fast      StageResult `json:"fast"`
	Thorough  StageResult `json:"thorough"`
	TotalCost float64     `json:"total_cost"`
}

// Orchestrator narrows the discovery set through one or two screening
// passes. Thorough screening costs roughly 50x fast screening per
// item, so the two-pass form runs thorough only on fast's shortlist to
// bound total spend.
type Orchestrator struct {
	remote Screener
	prices config.FunnelConfig
	logger logger.Logger
}

func NewOrchestrator(remote Screener, prices config.FunnelConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		remote: remote,
		prices: prices,
		logger: log.WithFields(map[string]interface{}{"component": "screening"}),
	}
}

// EstimateCost prices a hypothetical screen of count items so callers
// can show the figure before triggering the operation.
func (o *Orchestrator) EstimateCost(count int, mode models.ScreeningMode) (float64, error) {
	price, err := o.unitPrice(mode)
	if err != nil {
		return 0, err
	}
	return float64(count) * price, nil
}

func (o *Orchestrator) unitPrice(mode models.ScreeningMode) (float64, error) {
	switch mode {
	case models.ScreeningFast:
		return o.prices.FastUnitPrice, nil
	case models.ScreeningThorough:
		return o.prices.ThoroughUnitPrice, nil
	default:
		return 0, errors.NewInvalidScreeningModeError(string(mode))
	}
}

// Screen runs a single pass over the given set. An empty set is
// rejected before any request.
func (o *Orchestrator) Screen(ctx context.Context, profile models.ProfileContext, set []models.Opportunity, mode models.ScreeningMode) (*StageResult, error) {
	const op = "screen"

	if !mode.Valid() {
		return nil, errors.NewInvalidScreeningModeError(string(mode))
	}
	if len(set) == 0 {
		err := errors.NewNoOpportunitiesError()
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeNoOpportunities)).Inc()
		return nil, err
	}
	if max := o.prices.MaxBatchSize; max > 0 && len(set) > max {
		err := errors.NewBatchTooLargeError(len(set), max)
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeBatchTooLarge)).Inc()
		return nil, err
	}

	start := time.Now()
	result, err := o.remote.Screen(ctx, profile, set, mode)
	if err != nil {
		o.logger.WithError(err).Warn("screening pass failed", map[string]interface{}{
			"mode":  mode,
			"count": len(set),
		})
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	recommended := result.Recommended
	if len(recommended) > len(set) {
		// A screening pass filters; it never invents rows.
		o.logger.Warn("service recommended more than it was sent, truncating", map[string]interface{}{
			"mode":        mode,
			"sent":        len(set),
			"recommended": len(recommended),
		})
		recommended = recommended[:len(set)]
	}

	stage := &StageResult{
		Mode:        mode,
		InputCount:  len(set),
		Recommended: recommended,
		Cost:        result.Cost,
	}

	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	metrics.FunnelOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.ScreeningRecommended.WithLabelValues(string(mode)).Set(float64(len(recommended)))
	o.logger.Info("screening pass finished", map[string]interface{}{
		"mode":        mode,
		"input":       stage.InputCount,
		"recommended": len(recommended),
		"cost":        stage.Cost,
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return stage, nil
}

// BatchScreen runs the two-pass funnel: fast over the full discovery
// set, thorough over fast's recommendation. Reported total cost is the
// sum of both passes.
func (o *Orchestrator) BatchScreen(ctx context.Context, profile models.ProfileContext, discoverySet []models.Opportunity) (*BatchScreenResult, error) {
	fast, err := o.Screen(ctx, profile, discoverySet, models.ScreeningFast)
	if err != nil {
		return nil, err
	}

	out := &BatchScreenResult{Fast: *fast, TotalCost: fast.Cost}

	if len(fast.Recommended) == 0 {
		o.logger.Info("fast pass recommended nothing, skipping thorough pass", nil)
		out.Thorough = StageResult{Mode: models.ScreeningThorough}
		return out, nil
	}

	thorough, err := o.Screen(ctx, profile, fast.Recommended, models.ScreeningThorough)
	if err != nil {
		return nil, err
	}

	out.Thorough = *thorough
	out.TotalCost += thorough.Cost
	return out, nil
}
