package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Catalog Store read path
	ErrCodeCatalogConnectionFailed ErrorCode = "CATALOG_CONNECTION_FAILED"
	ErrCodeCatalogQueryFailed      ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeCatalogQueryTimeout     ErrorCode = "CATALOG_QUERY_TIMEOUT"

	// Catalog Store write path
	ErrCodeCatalogWriteFailed      ErrorCode = "CATALOG_WRITE_FAILED"
	ErrCodeProductNotFound         ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeProductValidationFailed ErrorCode = "PRODUCT_VALIDATION_FAILED"
	ErrCodeInvalidCatalogAction    ErrorCode = "INVALID_CATALOG_ACTION"

	// Announcements
	ErrCodeAnnouncementPublishFailed ErrorCode = "ANNOUNCEMENT_PUBLISH_FAILED"

	ErrCodeParseError    ErrorCode = "PARSE_ERROR"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error shape every worker reports to Zeebe.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair that is forwarded as an error variable.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is what gets thrown into the process when a job cannot be retried.
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

func NewCatalogConnectionFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeCatalogConnectionFailed, "Catalog store connection error",
		fmt.Sprintf("backend: %s, error: %v", backend, err), true)
}

func NewCatalogQueryFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeCatalogQueryFailed, "Catalog query failed",
		fmt.Sprintf("backend: %s, error: %v", backend, err), true)
}

func NewCatalogQueryTimeoutError(backend string) *StandardError {
	return newError(ErrCodeCatalogQueryTimeout, "Catalog query timeout",
		fmt.Sprintf("backend: %s", backend), true)
}

func NewCatalogWriteFailedError(action string, err error) *StandardError {
	return newError(ErrCodeCatalogWriteFailed, "Catalog write failed",
		fmt.Sprintf("action: %s, error: %v", action, err), true)
}

func NewProductNotFoundError(productID string) *StandardError {
	return newError(ErrCodeProductNotFound, "Product not found",
		fmt.Sprintf("productId: %s", productID), false)
}

func NewProductValidationFailedError(details string) *StandardError {
	return newError(ErrCodeProductValidationFailed, "Product payload validation failed", details, false)
}

func NewInvalidCatalogActionError(action string) *StandardError {
	return newError(ErrCodeInvalidCatalogAction, "Unsupported catalog action",
		fmt.Sprintf("action: %s", action), false)
}

func NewAnnouncementPublishFailedError(topic string, err error) *StandardError {
	return newError(ErrCodeAnnouncementPublishFailed, "Top pick announcement could not be published",
		fmt.Sprintf("topic: %s, error: %v", topic, err), true)
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Job variables could not be parsed", err.Error(), false)
}

// AsStandardError unwraps err to a StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// GetRetryCount is the number of Zeebe retries a code is allowed.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogConnectionFailed,
		ErrCodeCatalogQueryFailed,
		ErrCodeCatalogWriteFailed,
		ErrCodeAnnouncementPublishFailed:
		return 3
	case ErrCodeCatalogQueryTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the BPMN error thrown into the
// process. Non-retryable errors always carry zero retries.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CATALOG_"):
		return "CATALOG"
	case strings.HasPrefix(codeStr, "PRODUCT_") || strings.HasPrefix(codeStr, "INVALID_") || code == ErrCodeParseError:
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "ANNOUNCEMENT_"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
