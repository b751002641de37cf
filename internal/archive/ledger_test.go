package archive

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	funnelerrors "opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

func newTestLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerWithDB(db, logger.NewTestLogger(t)), mock
}

func TestLedger_RecordAnalysis(t *testing.T) {
	ledger, mock := newTestLedger(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO analysis_costs").
		WithArgs(sqlmock.AnyArg(), "opp-1", "profile-1", "standard", 5.00, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ledger.RecordAnalysis(context.Background(),
		models.ProfileContext{ProfileID: "profile-1"},
		models.IntelligenceResult{
			Opportunity: &models.Opportunity{OpportunityID: "opp-1"},
			Depth:       "standard",
			Cost:        5.00,
			Timestamp:   now,
		})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordAnalysis_WriteFailure(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectExec("INSERT INTO analysis_costs").
		WillReturnError(assert.AnError)

	err := ledger.RecordAnalysis(context.Background(),
		models.ProfileContext{ProfileID: "profile-1"},
		models.IntelligenceResult{Opportunity: &models.Opportunity{OpportunityID: "opp-1"}})

	require.Error(t, err)
	assert.Equal(t, funnelerrors.ErrCodeArchiveWriteFailed, funnelerrors.CodeOf(err))
}

func TestLedger_TotalCost(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(cost\\), 0\\) FROM analysis_costs").
		WithArgs("profile-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12.50))

	total, err := ledger.TotalCost(context.Background(), "profile-1")
	require.NoError(t, err)
	assert.Equal(t, 12.50, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_CostsByProfile(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery("SELECT opportunity_id, depth, cost").
		WithArgs("profile-1").
		WillReturnRows(sqlmock.NewRows([]string{"opportunity_id", "depth", "cost"}).
			AddRow("opp-1", "essentials", 2.00).
			AddRow("opp-1", "premium", 8.00).
			AddRow("opp-2", "standard", 5.00))

	entries, err := ledger.CostsByProfile(context.Background(), "profile-1")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, CostEntry{OpportunityID: "opp-1", Depth: "essentials", Cost: 2.00}, entries[0])
	assert.Equal(t, CostEntry{OpportunityID: "opp-1", Depth: "premium", Cost: 8.00}, entries[1],
		"re-analysis appends, the earlier row survives")
	assert.Equal(t, CostEntry{OpportunityID: "opp-2", Depth: "standard", Cost: 5.00}, entries[2])
}
