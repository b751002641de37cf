// internal/remote/analysisapi/client.go
package analysisapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/httpx"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

// screenResponseSchema guards the screening envelope. The cost figure
// feeds spend reporting, so it is checked before it is trusted.
const screenResponseSchema = `{
	"type": "object",
	"required": ["recommended", "cost"],
	"properties": {
		"recommended": {"type": "array"},
		"cost": {"type": "number", "minimum": 0}
	}
}`

// analyzeResponseSchema guards the paid analysis envelope.
const analyzeResponseSchema = `{
	"type": "object",
	"required": ["analysis", "cost"],
	"properties": {
		"analysis": {"type": "object"},
		"cost": {"type": "number", "minimum": 0}
	}
}`

const reportResponseSchema = `{
	"type": "object",
	"required": ["report"],
	"properties": {
		"report": {"type": "object"}
	}
}`

const exportResponseSchema = `{
	"type": "object",
	"required": ["reference"],
	"properties": {
		"reference": {"type": "string", "minLength": 1},
		"format": {"type": "string"}
	}
}`

// Client talks to the remote analysis service over JSON HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
	logger  logger.Logger
}

func NewClient(cfg config.RemoteServiceConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpx.NewClient(cfg.GetTimeout()),
		logger:  log.WithFields(map[string]interface{}{"client": "analysisapi"}),
	}
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// Screen sends a set of opportunities through one screening pass.
func (c *Client) Screen(ctx context.Context, profile models.ProfileContext, opportunities []models.Opportunity, mode models.ScreeningMode) (*ScreenResult, error) {
	const op = "screen"

	body := map[string]interface{}{
		"profile_id":    profile.ProfileID,
		"mode":          mode,
		"opportunities": opportunities,
	}
	data, err := c.http.PostJSON(ctx, c.baseURL+"/api/screen", c.headers(), body)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, screenResponseSchema, data); err != nil {
		return nil, err
	}

	var result ScreenResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// Analyze runs one paid analysis at the given depth, attributed to the
// billing profile.
func (c *Client) Analyze(ctx context.Context, profile models.ProfileContext, opportunity models.Opportunity, depth string) (*AnalyzeResult, error) {
	const op = "analyze"

	body := map[string]interface{}{
		"profile_id":  profile.ProfileID,
		"depth":       depth,
		"opportunity": opportunity,
	}
	data, err := c.http.PostJSON(ctx, c.baseURL+"/api/analyze", c.headers(), body)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, analyzeResponseSchema, data); err != nil {
		return nil, err
	}

	var result AnalyzeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// GenerateReport renders an analysis payload with a report template.
func (c *Client) GenerateReport(ctx context.Context, analysis map[string]interface{}, template string) (*ReportResult, error) {
	const op = "generate_report"

	body := map[string]interface{}{
		"analysis": analysis,
		"template": template,
	}
	data, err := c.http.PostJSON(ctx, c.baseURL+"/api/report", c.headers(), body)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, reportResponseSchema, data); err != nil {
		return nil, err
	}

	var result ReportResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// Export packages an intelligence record in the requested format and
// returns a reference to the artifact.
func (c *Client) Export(ctx context.Context, result models.IntelligenceResult, format string) (*ExportResult, error) {
	const op = "export"

	body := map[string]interface{}{
		"record": result,
		"format": format,
	}
	data, err := c.http.PostJSON(ctx, c.baseURL+"/api/export", c.headers(), body)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, exportResponseSchema, data); err != nil {
		return nil, err
	}

	var out ExportResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &out, nil
}

func (c *Client) wrapTransportError(operation string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return errors.NewRemoteTimeoutError(operation)
	}
	return errors.NewRemoteServiceError(operation, err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}

func validateEnvelope(operation, schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errors.NewResponseValidationFailedError(operation, err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return errors.NewResponseValidationFailedError(operation, strings.Join(details, "; "))
	}
	return nil
}
