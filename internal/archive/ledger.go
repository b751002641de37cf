// internal/archive/ledger.go
package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

// Ledger is the durable record of every paid analysis, used to
// reconcile billing. One row per successful analysis; re-analysis of
// the same opportunity appends another row, it never rewrites history.
type Ledger struct {
	db     *sql.DB
	logger logger.Logger
}

func NewLedger(cfg config.PostgresConfig, log logger.Logger) (*Ledger, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	return NewLedgerWithDB(db, log), nil
}

// NewLedgerWithDB wraps an existing connection, used by tests.
func NewLedgerWithDB(db *sql.DB, log logger.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "cost_ledger"}),
	}
}

// Ping tests the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

const insertAnalysisSQL = `
	INSERT INTO analysis_costs (id, opportunity_id, profile_id, depth, cost, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// RecordAnalysis appends one successful analysis to the ledger.
func (l *Ledger) RecordAnalysis(ctx context.Context, profile models.ProfileContext, result models.IntelligenceResult) error {
	_, err := l.db.ExecContext(ctx, insertAnalysisSQL,
		uuid.NewString(),
		result.Opportunity.OpportunityID,
		profile.ProfileID,
		result.Depth,
		result.Cost,
		result.Timestamp,
	)
	if err != nil {
		return errors.NewArchiveWriteFailedError(err)
	}
	return nil
}

const totalCostSQL = `
	SELECT COALESCE(SUM(cost), 0) FROM analysis_costs WHERE profile_id = $1`

// TotalCost returns the profile's accumulated analysis spend from the
// durable ledger.
func (l *Ledger) TotalCost(ctx context.Context, profileID string) (float64, error) {
	var total float64
	if err := l.db.QueryRowContext(ctx, totalCostSQL, profileID).Scan(&total); err != nil {
		return 0, fmt.Errorf("query total cost: %w", err)
	}
	return total, nil
}

// CostEntry is one ledger row.
type CostEntry struct {
	OpportunityID string
	Depth         string
	Cost          float64
}

const costsByProfileSQL = `
	SELECT opportunity_id, depth, cost
	FROM analysis_costs
	WHERE profile_id = $1
	ORDER BY created_at`

// CostsByProfile lists the profile's ledger rows in insertion order.
func (l *Ledger) CostsByProfile(ctx context.Context, profileID string) ([]CostEntry, error) {
	rows, err := l.db.QueryContext(ctx, costsByProfileSQL, profileID)
	if err != nil {
		return nil, fmt.Errorf("query costs: %w", err)
	}
	defer rows.Close()

	var entries []CostEntry
	for rows.Next() {
		var e CostEntry
		if err := rows.Scan(&e.OpportunityID, &e.Depth, &e.Cost); err != nil {
			return nil, fmt.Errorf("scan cost row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
