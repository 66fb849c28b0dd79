// Package errors provides standardized error handling for the care matching
// engine and its BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidPreference ErrorCode = "INVALID_PREFERENCE"
	ErrCodeInvalidAssessment ErrorCode = "INVALID_ASSESSMENT"
	ErrCodeUnknownStrategy   ErrorCode = "UNKNOWN_STRATEGY"
	ErrCodeInvalidEngagement ErrorCode = "INVALID_ENGAGEMENT_EVENT"
	ErrCodeInvalidOutcome    ErrorCode = "INVALID_OUTCOME"

	ErrCodeAssessmentNotFound ErrorCode = "ASSESSMENT_NOT_FOUND"
	ErrCodeHistoryNotFound    ErrorCode = "HISTORY_NOT_FOUND"
	ErrCodeAlreadyFinalized   ErrorCode = "ALREADY_FINALIZED"

	ErrCodeCandidateQueryFailed ErrorCode = "CANDIDATE_QUERY_FAILED"
	ErrCodeHistoryWriteFailed   ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeSimulationFailed       ErrorCode = "SIMULATION_FAILED"
	ErrCodeAnalyticsQueryFailed   ErrorCode = "ANALYTICS_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
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

// Is lets callers branch on kind with stdlib errors.Is against a bare code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// Code constants as comparable sentinels for errors.Is.
var (
	ErrInvalidPreference  = &StandardError{Code: ErrCodeInvalidPreference}
	ErrInvalidAssessment  = &StandardError{Code: ErrCodeInvalidAssessment}
	ErrUnknownStrategy    = &StandardError{Code: ErrCodeUnknownStrategy}
	ErrAssessmentNotFound = &StandardError{Code: ErrCodeAssessmentNotFound}
	ErrHistoryNotFound    = &StandardError{Code: ErrCodeHistoryNotFound}
	ErrAlreadyFinalized   = &StandardError{Code: ErrCodeAlreadyFinalized}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidPreferenceError creates a non-retryable preference validation error.
func NewInvalidPreferenceError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPreference,
		Message:   "Matching preference failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidAssessmentError creates a non-retryable assessment validation error.
func NewInvalidAssessmentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidAssessment,
		Message:   "Care assessment failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownStrategyError creates a non-retryable strategy selection error.
func NewUnknownStrategyError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownStrategy,
		Message:   "Unknown matching strategy",
		Details:   fmt.Sprintf("strategy: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEngagementEventError rejects an unrecognized lifecycle event.
func NewInvalidEngagementEventError(event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEngagement,
		Message:   "Unknown engagement event",
		Details:   fmt.Sprintf("event: %s", event),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidOutcomeError rejects a malformed or non-terminal outcome record.
func NewInvalidOutcomeError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidOutcome,
		Message:   "Invalid match outcome",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssessmentNotFoundError creates a non-retryable not-found error.
func NewAssessmentNotFoundError(assessmentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssessmentNotFound,
		Message:   "Care assessment not found",
		Details:   fmt.Sprintf("assessmentId: %s", assessmentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryNotFoundError creates a non-retryable not-found error.
func NewHistoryNotFoundError(historyID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryNotFound,
		Message:   "Matching history row not found",
		Details:   fmt.Sprintf("historyId: %s", historyID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyFinalizedError creates a non-retryable terminal-outcome conflict error.
func NewAlreadyFinalizedError(historyID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyFinalized,
		Message:   "Matching history already has a terminal outcome",
		Details:   fmt.Sprintf("historyId: %s", historyID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCandidateQueryFailedError creates a retryable candidate store error.
func NewCandidateQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateQueryFailed,
		Message:   "Candidate pool query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryWriteFailedError creates a retryable history persistence error.
func NewHistoryWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryWriteFailed,
		Message:   "Matching history write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable pool cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Candidate pool cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSimulationFailedError creates a retryable simulation error.
func NewSimulationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSimulationFailed,
		Message:   "Matching simulation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnalyticsQueryFailedError creates a retryable analytics error.
func NewAnalyticsQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyticsQueryFailed,
		Message:   "Matching analytics query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidPreference:      "INVALID_PREFERENCE",
	ErrCodeInvalidAssessment:      "INVALID_ASSESSMENT",
	ErrCodeUnknownStrategy:        "UNKNOWN_STRATEGY",
	ErrCodeInvalidEngagement:      "INVALID_ENGAGEMENT_EVENT",
	ErrCodeInvalidOutcome:         "INVALID_OUTCOME",
	ErrCodeAssessmentNotFound:     "ASSESSMENT_NOT_FOUND",
	ErrCodeHistoryNotFound:        "HISTORY_NOT_FOUND",
	ErrCodeAlreadyFinalized:       "ALREADY_FINALIZED",
	ErrCodeCandidateQueryFailed:   "CANDIDATE_QUERY_FAILED",
	ErrCodeHistoryWriteFailed:     "HISTORY_WRITE_FAILED",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeSimulationFailed:       "SIMULATION_FAILED",
	ErrCodeAnalyticsQueryFailed:   "ANALYTICS_QUERY_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCandidateQueryFailed,
		ErrCodeHistoryWriteFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeCacheUnavailable,
		ErrCodeSimulationFailed,
		ErrCodeAnalyticsQueryFailed:
		return 2

	default:
		return 0 // Validation / business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsValidation reports whether the error is an input validation error.
func IsValidation(err error) bool {
	stdErr, ok := err.(*StandardError)
	if !ok {
		return false
	}
	switch stdErr.Code {
	case ErrCodeInvalidPreference, ErrCodeInvalidAssessment, ErrCodeUnknownStrategy,
		ErrCodeInvalidEngagement, ErrCodeInvalidOutcome:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "HISTORY") || strings.Contains(codeStr, "FINALIZED"):
		return "HISTORY"
	case strings.Contains(codeStr, "CANDIDATE") || strings.Contains(codeStr, "CACHE"):
		return "POOL"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
