// internal/models/intelligence.go
package models

import "time"

// IntelligenceResult is the stored outcome of one paid analysis,
// keyed by opportunity id. Re-running an analysis overwrites the
// payload; the cost of the earlier run stays in the ledger.
type IntelligenceResult struct {
	Opportunity *Opportunity           `json:"opportunity"`
	Depth       string                 `json:"depth"`
	Analysis    map[string]interface{} `json:"analysis"`
	Cost        float64                `json:"cost"`
	Timestamp   time.Time              `json:"timestamp"`
	Report      map[string]interface{} `json:"report,omitempty"`
	Package     string                 `json:"package,omitempty"`
}

// ItemError records one failed item of a batch operation.
type ItemError struct {
	OpportunityID string `json:"opportunity_id"`
	Message       string `json:"message"`
}

// BatchResult is the contract every batch operation resolves to.
// Batches never raise past their boundary; partial failure shows up
// as a nonzero Failed count alongside the successes.
type BatchResult struct {
	BatchID   string      `json:"batch_id"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	TotalCost float64     `json:"total_cost,omitempty"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// RecordFailure appends one failed item to the tally.
func (r *BatchResult) RecordFailure(opportunityID string, err error) {
	r.Failed++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.Errors = append(r.Errors, ItemError{OpportunityID: opportunityID, Message: msg})
}

// SelectionEntry is one staged opportunity in the selection gateway.
type SelectionEntry struct {
	OpportunityID string `json:"opportunity_id"`
	Note          string `json:"note,omitempty"`
}

// ScreeningMode selects the cost/quality trade-off of a screening pass.
type ScreeningMode string

const (
	ScreeningFast     ScreeningMode = "fast"
	ScreeningThorough ScreeningMode = "thorough"
)

// Valid reports whether the mode is one of the known passes.
func (m ScreeningMode) Valid() bool {
	return m == ScreeningFast || m == ScreeningThorough
}
