// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Catalog
	ErrCodeNoProvidersAvailable ErrorCode = "NO_PROVIDERS_AVAILABLE"
	ErrCodeCatalogLoadFailed    ErrorCode = "CATALOG_LOAD_FAILED"

	// LLM invocation
	ErrCodeLLMInvocationFailed ErrorCode = "LLM_INVOCATION_FAILED"
	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMResponseInvalid  ErrorCode = "LLM_RESPONSE_INVALID"

	// Workflow state
	ErrCodeMatchingInProgress      ErrorCode = "MATCHING_IN_PROGRESS"
	ErrCodeTransactionNotFound     ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeTransactionLoadFailed   ErrorCode = "TRANSACTION_LOAD_FAILED"
	ErrCodeTransactionUpdateFailed ErrorCode = "TRANSACTION_UPDATE_FAILED"

	// Infrastructure
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	// Input
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeSelectionInvalid ErrorCode = "SELECTION_INVALID"

	// Outbound events
	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoProvidersAvailableError is raised when the active catalog is empty.
func NewNoProvidersAvailableError() *StandardError {
	return newError(ErrCodeNoProvidersAvailable, "No active startups in catalog", "", false)
}

// NewCatalogLoadFailedError creates a retryable catalog read error.
func NewCatalogLoadFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCatalogLoadFailed, "Failed to load startup catalog",
		fmt.Sprintf("source: %s, error: %s", source, err.Error()), true)
}

// NewLLMInvocationFailedError creates a retryable LLM transport/API error.
func NewLLMInvocationFailedError(err error) *StandardError {
	return newError(ErrCodeLLMInvocationFailed, "LLM invocation failed", err.Error(), true)
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM invocation timeout",
		fmt.Sprintf("call exceeded %s", timeout), true)
}

// NewLLMResponseInvalidError is non-retryable: the same prompt tends to produce the same shape.
func NewLLMResponseInvalidError(details string) *StandardError {
	return newError(ErrCodeLLMResponseInvalid, "LLM response did not match the expected structure", details, false)
}

func NewMatchingInProgressError(transactionID string) *StandardError {
	return newError(ErrCodeMatchingInProgress, "Matching already running for transaction",
		fmt.Sprintf("transactionId: %s", transactionID), false)
}

func NewTransactionNotFoundError(transactionID string) *StandardError {
	return newError(ErrCodeTransactionNotFound, "Transaction not found",
		fmt.Sprintf("transactionId: %s", transactionID), false)
}

// NewTransactionLoadFailedError creates a retryable database read error.
func NewTransactionLoadFailedError(transactionID string, err error) *StandardError {
	return newError(ErrCodeTransactionLoadFailed, "Failed to load transaction",
		fmt.Sprintf("transactionId: %s, error: %s", transactionID, err.Error()), true)
}

// NewCacheUnavailableError creates a retryable Redis error.
func NewCacheUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewTransactionUpdateFailedError(transactionID string, err error) *StandardError {
	return newError(ErrCodeTransactionUpdateFailed, "Failed to persist transaction",
		fmt.Sprintf("transactionId: %s, error: %s", transactionID, err.Error()), true)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewSelectionInvalidError(details string) *StandardError {
	return newError(ErrCodeSelectionInvalid, "Invalid startup selection", details, false)
}

func NewEventPublishFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Failed to publish event",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNoProvidersAvailable:    "NO_PROVIDERS_AVAILABLE",
	ErrCodeCatalogLoadFailed:       "CATALOG_LOAD_FAILED",
	ErrCodeLLMInvocationFailed:     "LLM_INVOCATION_FAILED",
	ErrCodeLLMTimeout:              "LLM_TIMEOUT",
	ErrCodeLLMResponseInvalid:      "LLM_RESPONSE_INVALID",
	ErrCodeMatchingInProgress:      "MATCHING_IN_PROGRESS",
	ErrCodeTransactionNotFound:     "TRANSACTION_NOT_FOUND",
	ErrCodeTransactionLoadFailed:   "TRANSACTION_LOAD_FAILED",
	ErrCodeTransactionUpdateFailed: "TRANSACTION_UPDATE_FAILED",
	ErrCodeCacheUnavailable:        "CACHE_UNAVAILABLE",
	ErrCodeInvalidInput:            "INVALID_INPUT",
	ErrCodeSelectionInvalid:        "SELECTION_INVALID",
	ErrCodeEventPublishFailed:      "EVENT_PUBLISH_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogLoadFailed,
		ErrCodeTransactionLoadFailed,
		ErrCodeTransactionUpdateFailed,
		ErrCodeCacheUnavailable,
		ErrCodeEventPublishFailed:
		return 3

	case ErrCodeLLMInvocationFailed:
		return 2 // the invoker already retried internally

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
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

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROVIDERS") || strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.HasPrefix(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "TRANSACTION") || codeStr == string(ErrCodeMatchingInProgress):
		return "WORKFLOW_STATE"
	case strings.Contains(codeStr, "EVENT"):
		return "EVENTS"
	case strings.Contains(codeStr, "CACHE"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
