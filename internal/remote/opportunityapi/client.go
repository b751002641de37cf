// internal/remote/opportunityapi/client.go
package opportunityapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/errors"
	"opportunity-funnel/internal/common/httpx"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/common/validation"
	"opportunity-funnel/internal/models"
)

// Client talks to the remote opportunity service over JSON HTTP.
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
		logger:  log.WithFields(map[string]interface{}{"client": "opportunityapi"}),
	}
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// FetchOpportunities loads the profile's opportunity set, optionally
// filtered to one stage. Pass an empty stage for everything.
func (c *Client) FetchOpportunities(ctx context.Context, profile models.ProfileContext, stage models.Stage) (*FetchResult, error) {
	const op = "fetch_opportunities"

	endpoint := fmt.Sprintf("%s/api/profiles/%s/opportunities", c.baseURL, url.PathEscape(profile.ProfileID))
	if stage != "" {
		endpoint += "?stage=" + url.QueryEscape(string(stage))
	}

	data, err := c.http.GetJSON(ctx, endpoint, c.headers())
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, fetchResponseSchema, data); err != nil {
		return nil, err
	}

	var result FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// RunDiscovery starts a discovery run for the profile. Options are
// validated locally before the request is issued.
func (c *Client) RunDiscovery(ctx context.Context, profile models.ProfileContext, opts DiscoveryOptions) (*DiscoveryResult, error) {
	const op = "run_discovery"

	input := map[string]interface{}{
		"max_results":           opts.MaxResults,
		"auto_enrichment_count": opts.AutoEnrichmentCount,
		"min_score_threshold":   opts.MinScoreThreshold,
		"apply_score_filter":    opts.ApplyScoreFilter,
	}
	if res := validation.ValidateInput(input, discoveryOptionsSchema()); !res.Valid {
		return nil, errors.NewDiscoveryFailedError(profile.ProfileID,
			fmt.Errorf("invalid discovery options: %+v", res.Errors))
	}

	endpoint := fmt.Sprintf("%s/api/profiles/%s/discovery", c.baseURL, url.PathEscape(profile.ProfileID))
	data, err := c.http.PostJSON(ctx, endpoint, c.headers(), opts)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, discoveryResponseSchema, data); err != nil {
		return nil, err
	}

	var result DiscoveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// Promote asks the server to move the opportunity one category level
// up, or into the intelligence stage from qualified. The server
// decides the resulting level and stage.
func (c *Client) Promote(ctx context.Context, profile models.ProfileContext, opportunityID string) (*TransitionResult, error) {
	return c.transition(ctx, profile, opportunityID, "promote", nil)
}

// Demote asks the server to move the opportunity one category level down.
func (c *Client) Demote(ctx context.Context, profile models.ProfileContext, opportunityID string) (*TransitionResult, error) {
	return c.transition(ctx, profile, opportunityID, "demote", nil)
}

// PromoteWithNotes promotes one selected opportunity and attaches the
// selection note in the same request.
func (c *Client) PromoteWithNotes(ctx context.Context, profile models.ProfileContext, opportunityID, note string) (*TransitionResult, error) {
	body := map[string]string{"notes": note}
	return c.transition(ctx, profile, opportunityID, "promote", body)
}

func (c *Client) transition(ctx context.Context, profile models.ProfileContext, opportunityID, action string, body interface{}) (*TransitionResult, error) {
	op := "transition_" + action

	if body == nil {
		body = map[string]string{}
	}
	endpoint := fmt.Sprintf("%s/api/profiles/%s/opportunities/%s/%s",
		c.baseURL, url.PathEscape(profile.ProfileID), url.PathEscape(opportunityID), action)

	data, err := c.http.PostJSON(ctx, endpoint, c.headers(), body)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, transitionResponseSchema, data); err != nil {
		return nil, err
	}

	var result TransitionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// PatchNotes persists free-text notes for an opportunity.
func (c *Client) PatchNotes(ctx context.Context, profile models.ProfileContext, opportunityID, text string) (*NotesResult, error) {
	const op = "patch_notes"

	endpoint := fmt.Sprintf("%s/api/profiles/%s/opportunities/%s/notes",
		c.baseURL, url.PathEscape(profile.ProfileID), url.PathEscape(opportunityID))

	data, err := c.http.PostJSON(ctx, endpoint, c.headers(), map[string]string{"notes": text})
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, notesResponseSchema, data); err != nil {
		return nil, err
	}

	var result NotesResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
}

// DiscoverURLs runs bulk website URL discovery across the profile's
// opportunities.
func (c *Client) DiscoverURLs(ctx context.Context, profile models.ProfileContext, excludeLowPriority bool) (*URLDiscoveryResult, error) {
	const op = "discover_urls"

	endpoint := fmt.Sprintf("%s/api/profiles/%s/opportunities/discover-urls",
		c.baseURL, url.PathEscape(profile.ProfileID))

	data, err := c.http.PostJSON(ctx, endpoint, c.headers(), map[string]bool{
		"excludeLowPriority": excludeLowPriority,
	})
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}

	if err := validateEnvelope(op, urlDiscoveryResponseSchema, data); err != nil {
		return nil, err
	}

	var result URLDiscoveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewResponseValidationFailedError(op, err.Error())
	}
	return &result, nil
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

// validateEnvelope checks raw response bytes against a JSON schema
// before any field is trusted.
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
