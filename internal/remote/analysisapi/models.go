// internal/remote/analysisapi/models.go
package analysisapi

import "opportunity-funnel/internal/models"

// ScreenResult is the outcome of one screening pass: the subset the
// service recommends keeping, plus what the pass cost.
type ScreenResult struct {
	Recommended []models.Opportunity `json:"recommended"`
	Cost        float64              `json:"cost"`
}

// AnalyzeResult is the outcome of one paid analysis call.
type AnalyzeResult struct {
	Analysis map[string]interface{} `json:"analysis"`
	Cost     float64                `json:"cost"`
}

// ReportResult is a generated report payload.
type ReportResult struct {
	Report map[string]interface{} `json:"report"`
}

// ExportResult references an exported artifact.
type ExportResult struct {
	Reference string `json:"reference"`
	Format    string `json:"format"`
}
