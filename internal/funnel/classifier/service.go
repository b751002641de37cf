// internal/funnel/classifier/service.go
package classifier

import (
	"context"

	"github.com/google/uuid"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/metrics"
	"opportunity-funnel/internal/models"
	"opportunity-funnel/internal/remote/opportunityapi"
	"opportunity-funnel/internal/store"
)

// TransitionService is the slice of the remote opportunity service the
// classifier needs.
type TransitionService interface {
	Promote(ctx context.Context, profile models.ProfileContext, opportunityID string) (*opportunityapi.TransitionResult, error)
	Demote(ctx context.Context, profile models.ProfileContext, opportunityID string) (*opportunityapi.TransitionResult, error)
}

// Service owns category levels and stage transitions. It issues intent
// to the server and reconciles the local record from the server's
// response; it never computes "next level" itself.
type Service struct {
	store    *store.Store
	remote   TransitionService
	maxBatch int
	logger   logger.Logger
}

func NewService(s *store.Store, remote TransitionService, cfg config.FunnelConfig, log logger.Logger) *Service {
	return &Service{
		store:    s,
		remote:   remote,
		maxBatch: cfg.MaxBatchSize,
		logger:   log.WithFields(map[string]interface{}{"component": "classifier"}),
	}
}

// Promote moves the opportunity one category level up, or from
// qualified/discovery into the intelligence stage. The record must
// carry a real opportunity id; otherwise the caller is told to re-run
// discovery and no request is issued.
func (s *Service) Promote(ctx context.Context, profile models.ProfileContext, opportunity models.Opportunity) (*opportunityapi.TransitionResult, error) {
	const op = "promote"

	if opportunity.OpportunityID == "" {
		err := errors.NewMissingOpportunityIDError(opportunity.OrganizationName)
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeMissingOpportunityID)).Inc()
		return nil, err
	}

	result, err := s.remote.Promote(ctx, profile, opportunity.OpportunityID)
	if err != nil {
		s.logger.WithError(err).Warn("promotion failed", map[string]interface{}{
			"opportunityId": opportunity.OpportunityID,
		})
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	s.reconcile(result)
	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	s.logger.Info("opportunity promoted", map[string]interface{}{
		"opportunityId": result.OpportunityID,
		"categoryLevel": result.CategoryLevel,
		"currentStage":  result.CurrentStage,
	})
	return result, nil
}

// Demote moves the opportunity one category level down. A record
// already at the lowest category is rejected locally with a warning;
// no request is issued.
func (s *Service) Demote(ctx context.Context, profile models.ProfileContext, opportunity models.Opportunity) (*opportunityapi.TransitionResult, error) {
	const op = "demote"

	if opportunity.OpportunityID == "" {
		err := errors.NewMissingOpportunityIDError(opportunity.OrganizationName)
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeMissingOpportunityID)).Inc()
		return nil, err
	}
	if opportunity.CategoryLevel == models.CategoryLowPriority {
		err := errors.NewCategoryFloorError(opportunity.OrganizationName)
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.ErrCodeCategoryFloorReached)).Inc()
		return nil, err
	}

	result, err := s.remote.Demote(ctx, profile, opportunity.OpportunityID)
	if err != nil {
		s.logger.WithError(err).Warn("demotion failed", map[string]interface{}{
			"opportunityId": opportunity.OpportunityID,
		})
		metrics.FunnelOperationsFailed.WithLabelValues(op, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	s.reconcile(result)
	metrics.FunnelOperationsCompleted.WithLabelValues(op).Inc()
	s.logger.Info("opportunity demoted", map[string]interface{}{
		"opportunityId": result.OpportunityID,
		"categoryLevel": result.CategoryLevel,
	})
	return result, nil
}

// PromoteSelected promotes every opportunity in the given set, one at
// a time in set order. Failures are tallied and the batch continues;
// successes already committed stay committed.
func (s *Service) PromoteSelected(ctx context.Context, profile models.ProfileContext, opportunities []models.Opportunity) *models.BatchResult {
	result := &models.BatchResult{BatchID: uuid.NewString()}

	// Items beyond the configured limit go into the tally instead of
	// being silently skipped; batches never raise.
	if s.maxBatch > 0 && len(opportunities) > s.maxBatch {
		capErr := errors.NewBatchTooLargeError(len(opportunities), s.maxBatch)
		for _, opp := range opportunities[s.maxBatch:] {
			result.RecordFailure(opp.OpportunityID, capErr)
		}
		s.logger.Warn("promotion batch capped at configured limit", map[string]interface{}{
			"count": len(opportunities),
			"limit": s.maxBatch,
		})
		opportunities = opportunities[:s.maxBatch]
	}

	log := s.logger.WithFields(map[string]interface{}{
		"batchId": result.BatchID,
		"count":   len(opportunities),
	})
	log.Info("starting batch promotion", nil)

	for _, opp := range opportunities {
		if _, err := s.Promote(ctx, profile, opp); err != nil {
			result.RecordFailure(opp.OpportunityID, err)
			continue
		}
		result.Completed++
	}

	log.Info("batch promotion finished", map[string]interface{}{
		"completed": result.Completed,
		"failed":    result.Failed,
	})
	return result
}

// reconcile overwrites the local record with the server's authoritative
// level and stage.
func (s *Service) reconcile(result *opportunityapi.TransitionResult) {
	opp, ok := s.store.Get(result.OpportunityID)
	if !ok {
		return
	}
	opp.CategoryLevel = result.CategoryLevel
	opp.CurrentStage = result.CurrentStage
	s.store.Upsert(opp)
}
