// internal/archive/elastic.go
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

// ResultIndex stores completed analysis payloads in Elasticsearch for
// offline search. Like the ledger, it is best effort.
type ResultIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewResultIndex(cfg config.ElasticsearchConfig, log logger.Logger) (*ResultIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ResultIndex{
		client: client,
		index:  cfg.Index,
		logger: log.WithFields(map[string]interface{}{"component": "result_index"}),
	}, nil
}

// Ping tests the cluster connection.
func (r *ResultIndex) Ping(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

type indexedResult struct {
	ProfileID     string                 `json:"profile_id"`
	OpportunityID string                 `json:"opportunity_id"`
	Organization  string                 `json:"organization_name"`
	Depth         string                 `json:"depth"`
	Cost          float64                `json:"cost"`
	Analysis      map[string]interface{} `json:"analysis"`
	Timestamp     string                 `json:"timestamp"`
}

// IndexResult writes one completed analysis, keyed by profile and
// opportunity so re-analysis overwrites the searchable document.
func (r *ResultIndex) IndexResult(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error {
	doc := indexedResult{
		ProfileID:     profile.ProfileID,
		OpportunityID: result.Opportunity.OpportunityID,
		Organization:  result.Opportunity.OrganizationName,
		Depth:         result.Depth,
		Cost:          result.Cost,
		Analysis:      result.Analysis,
		Timestamp:     result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.NewSearchIndexingFailedError(r.index, err)
	}

	docID := profile.ProfileID + ":" + result.Opportunity.OpportunityID
	res, err := r.client.Index(
		r.index,
		bytes.NewReader(payload),
		r.client.Index.WithDocumentID(docID),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchIndexingFailedError(r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchIndexingFailedError(r.index, fmt.Errorf("index response: %s", res.Status()))
	}
	return nil
}
