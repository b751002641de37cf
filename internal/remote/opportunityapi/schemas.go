// internal/remote/opportunityapi/schemas.go
package opportunityapi

import "opportunity-funnel/internal/common/validation"

// transitionResponseSchema guards the promote/demote envelope. The
// returned level and stage overwrite local state, so they are checked
// before they are trusted.
const transitionResponseSchema = `{
	"type": "object",
	"required": ["opportunity_id", "category_level", "current_stage"],
	"properties": {
		"opportunity_id": {"type": "string", "minLength": 1},
		"category_level": {
			"type": "string",
			"enum": ["low_priority", "consider", "review", "qualified"]
		},
		"current_stage": {
			"type": "string",
			"enum": ["discovery", "intelligence"]
		},
		"message": {"type": "string"}
	}
}`

// fetchResponseSchema guards the opportunity list envelope.
const fetchResponseSchema = `{
	"type": "object",
	"required": ["opportunities", "funnel_summary"],
	"properties": {
		"opportunities": {"type": "array"},
		"funnel_summary": {"type": "object"},
		"discovery_metadata": {"type": "object"}
	}
}`

// discoveryResponseSchema guards the discovery run envelope.
const discoveryResponseSchema = `{
	"type": "object",
	"required": ["opportunities", "funnel_summary"],
	"properties": {
		"opportunities": {"type": "array"},
		"funnel_summary": {"type": "object"},
		"statistics": {"type": "object"}
	}
}`

// notesResponseSchema guards the notes patch echo.
const notesResponseSchema = `{
	"type": "object",
	"required": ["opportunity_id", "notes"],
	"properties": {
		"opportunity_id": {"type": "string"},
		"notes": {"type": "string"},
		"length": {"type": "integer"}
	}
}`

// urlDiscoveryResponseSchema guards the bulk URL discovery summary.
const urlDiscoveryResponseSchema = `{
	"type": "object",
	"required": ["found", "not_found"],
	"properties": {
		"found": {"type": "integer"},
		"not_found": {"type": "integer"},
		"elapsed_seconds": {"type": "number"},
		"urls": {"type": "object"}
	}
}`

func discoveryOptionsSchema() validation.JSONSchema {
	minZero := 0.0
	maxResults := 1000.0
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"max_results":           {Type: "integer", Minimum: &minZero, Maximum: &maxResults},
			"auto_enrichment_count": {Type: "integer", Minimum: &minZero},
			"min_score_threshold":   {Type: "number", Minimum: &minZero},
			"apply_score_filter":    {Type: "boolean"},
		},
		Required: []string{"max_results"},
	}
}
