// Package errors provides standardized error handling for funnel operations.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Input errors: rejected before any network call.
const (
	ErrCodeMissingOpportunityID ErrorCode = "MISSING_OPPORTUNITY_ID"
	ErrCodeEmptySelection       ErrorCode = "EMPTY_SELECTION"
	ErrCodeNoOpportunities      ErrorCode = "NO_OPPORTUNITIES"
	ErrCodeMissingProfile       ErrorCode = "MISSING_PROFILE"
	ErrCodeUnknownDepthTier     ErrorCode = "UNKNOWN_DEPTH_TIER"
	ErrCodeInvalidScreeningMode ErrorCode = "INVALID_SCREENING_MODE"
	ErrCodeBatchTooLarge        ErrorCode = "BATCH_TOO_LARGE"
)

// Floor violations: rejected locally with a warning.
const (
	ErrCodeCategoryFloorReached ErrorCode = "CATEGORY_FLOOR_REACHED"
)

// Remote failures: caught per operation.
const (
	ErrCodeRemoteServiceError       ErrorCode = "REMOTE_SERVICE_ERROR"
	ErrCodeRemoteTimeout            ErrorCode = "REMOTE_TIMEOUT"
	ErrCodeResponseValidationFailed ErrorCode = "RESPONSE_VALIDATION_FAILED"
	ErrCodeNotesSaveFailed          ErrorCode = "NOTES_SAVE_FAILED"
	ErrCodeDiscoveryFailed          ErrorCode = "DISCOVERY_FAILED"
	ErrCodeArchiveWriteFailed       ErrorCode = "ARCHIVE_WRITE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSearchIndexingFailed     ErrorCode = "SEARCH_INDEXING_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Notification renders the user-facing text for this error. Every
// failure path ends in a human-readable notification.
func (e *StandardError) Notification() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMissingOpportunityIDError creates a non-retryable input error for a
// record without a stable identifier.
func NewMissingOpportunityIDError(organizationName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingOpportunityID,
		Message:   "Opportunity has no identifier; re-run discovery to reload it",
		Details:   fmt.Sprintf("organization: %s", organizationName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptySelectionError creates a non-retryable input error for
// proceeding with nothing selected.
func NewEmptySelectionError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptySelection,
		Message:   "No opportunities selected for intelligence",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoOpportunitiesError creates a non-retryable input error for an
// empty screening set.
func NewNoOpportunitiesError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoOpportunities,
		Message:   "No opportunities to screen",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingProfileError creates a non-retryable input error: paid
// analysis must always be attributable to a billing profile.
func NewMissingProfileError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingProfile,
		Message:   "No profile resolved for paid analysis",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownDepthTierError creates a non-retryable input error.
func NewUnknownDepthTierError(tierID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownDepthTier,
		Message:   "Unknown analysis depth tier",
		Details:   fmt.Sprintf("tierId: %s", tierID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidScreeningModeError creates a non-retryable input error.
func NewInvalidScreeningModeError(mode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidScreeningMode,
		Message:   "Unsupported screening mode",
		Details:   fmt.Sprintf("mode: %s", mode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBatchTooLargeError creates a non-retryable input error for a batch
// exceeding the configured size limit.
func NewBatchTooLargeError(count, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchTooLarge,
		Message:   "Batch exceeds the configured size limit",
		Details:   fmt.Sprintf("count: %d, limit: %d", count, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCategoryFloorError creates a non-retryable floor violation for a
// demotion below the lowest category. No network call is issued.
func NewCategoryFloorError(organizationName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCategoryFloorReached,
		Message:   "Already at the lowest category",
		Details:   fmt.Sprintf("organization: %s", organizationName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteServiceError creates a retryable remote failure.
func NewRemoteServiceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteServiceError,
		Message:   "Remote service request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteTimeoutError creates a retryable remote timeout.
func NewRemoteTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteTimeout,
		Message:   "Remote service request timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseValidationFailedError creates a non-retryable error for a
// response envelope that failed schema validation.
func NewResponseValidationFailedError(operation, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseValidationFailed,
		Message:   "Remote service response failed validation",
		Details:   fmt.Sprintf("operation: %s, %s", operation, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotesSaveFailedError creates a non-retryable notes persistence
// error. Autosave surfaces it to the user and does not retry.
func NewNotesSaveFailedError(opportunityID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotesSaveFailed,
		Message:   "Failed to save notes",
		Details:   fmt.Sprintf("opportunityId: %s, error: %s", opportunityID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDiscoveryFailedError creates a retryable discovery error.
func NewDiscoveryFailedError(profileID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDiscoveryFailed,
		Message:   "Discovery run failed",
		Details:   fmt.Sprintf("profileId: %s, error: %s", profileID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewArchiveWriteFailedError creates a retryable archive error. Archive
// writes are best effort and never fail the analysis they record.
func NewArchiveWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArchiveWriteFailed,
		Message:   "Failed to archive analysis result",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send notification",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchIndexingFailedError creates a retryable indexing error.
func NewSearchIndexingFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchIndexingFailed,
		Message:   "Failed to index document",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Inspection
// ==========================

// AsStandardError extracts a *StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or empty string for plain errors.
func CodeOf(err error) ErrorCode {
	if se, ok := AsStandardError(err); ok {
		return se.Code
	}
	return ""
}

// IsInputError reports whether err was rejected before any network call.
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMissingOpportunityID, ErrCodeEmptySelection, ErrCodeNoOpportunities,
		ErrCodeMissingProfile, ErrCodeUnknownDepthTier, ErrCodeInvalidScreeningMode,
		ErrCodeBatchTooLarge, ErrCodeCategoryFloorReached:
		return true
	}
	return false
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	if se, ok := AsStandardError(err); ok {
		return se.Retryable
	}
	return false
}

// GetRetryCount maps an error code to the number of automatic retries a
// caller should budget for it.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRemoteTimeout:
		return 2
	case ErrCodeRemoteServiceError, ErrCodeDatabaseConnectionFailed,
		ErrCodeArchiveWriteFailed, ErrCodeSearchIndexingFailed,
		ErrCodeNotificationSendFailed:
		return 3
	default:
		return 0
	}
}
