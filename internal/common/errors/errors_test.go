package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"connection", NewCatalogConnectionFailedError("postgres", fmt.Errorf("refused")), ErrCodeCatalogConnectionFailed, true},
		{"query", NewCatalogQueryFailedError("elasticsearch", fmt.Errorf("500")), ErrCodeCatalogQueryFailed, true},
		{"timeout", NewCatalogQueryTimeoutError("postgres"), ErrCodeCatalogQueryTimeout, true},
		{"write", NewCatalogWriteFailedError("insert", fmt.Errorf("constraint")), ErrCodeCatalogWriteFailed, true},
		{"not found", NewProductNotFoundError("prod-1"), ErrCodeProductNotFound, false},
		{"validation", NewProductValidationFailedError("price: must be >= 0"), ErrCodeProductValidationFailed, false},
		{"action", NewInvalidCatalogActionError("upsert"), ErrCodeInvalidCatalogAction, false},
		{"publish", NewAnnouncementPublishFailedError("arn:topic", fmt.Errorf("throttled")), ErrCodeAnnouncementPublishFailed, true},
		{"parse", NewParseError(fmt.Errorf("unexpected EOF")), ErrCodeParseError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
			assert.Equal(t, tt.retryable, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeCatalogQueryFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeCatalogQueryTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeProductNotFound))
	assert.Equal(t, 0, GetRetryCount("SOMETHING_ELSE"))
}

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewProductNotFoundError("prod-9").WithMetadata("productId", "prod-9")

	bpmnErr := ConvertToBPMNError(stdErr)
	assert.Equal(t, "PRODUCT_NOT_FOUND", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.False(t, bpmnErr.Retryable)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "PRODUCT_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "PRODUCT_NOT_FOUND", vars["originalErrorCode"])
	assert.Equal(t, "VALIDATION", vars["errorCategory"])
	assert.Equal(t, "prod-9", vars["productId"])
}

func TestConvertToBPMNError_NonRetryableOverride(t *testing.T) {
	stdErr := NewCatalogQueryFailedError("postgres", fmt.Errorf("boom"))
	stdErr.Retryable = false

	assert.Equal(t, 0, ConvertToBPMNError(stdErr).Retries)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeCatalogQueryTimeout:       "CATALOG",
		ErrCodeCatalogWriteFailed:        "CATALOG",
		ErrCodeProductValidationFailed:   "VALIDATION",
		ErrCodeInvalidCatalogAction:      "VALIDATION",
		ErrCodeParseError:                "VALIDATION",
		ErrCodeAnnouncementPublishFailed: "NOTIFICATION",
		ErrCodeInternalError:             "OTHER",
	}
	for code, category := range tests {
		assert.Equal(t, category, GetErrorCategory(code), code)
	}
}

func TestNormalize(t *testing.T) {
	stdErr := NewCatalogQueryTimeoutError("postgres")
	wrapped := fmt.Errorf("fetch candidates: %w", stdErr)

	got := Normalize(wrapped)
	require.NotNil(t, got)
	assert.Same(t, stdErr, got)

	internal := Normalize(fmt.Errorf("nil map"))
	assert.Equal(t, ErrCodeInternalError, internal.Code)
	assert.Equal(t, "nil map", internal.Details)
	assert.False(t, internal.Retryable)
}

func TestRetriesFor(t *testing.T) {
	tests := []struct {
		name       string
		err        *StandardError
		jobRetries int32
		expected   int32
	}{
		{"retryable with budget", NewCatalogQueryFailedError("postgres", fmt.Errorf("x")), 3, 2},
		{"capped by code", NewCatalogQueryTimeoutError("postgres"), 10, 2},
		{"last attempt", NewCatalogQueryFailedError("postgres", fmt.Errorf("x")), 1, 0},
		{"no retries left", NewCatalogWriteFailedError("update", fmt.Errorf("x")), 0, 0},
		{"business error", NewProductNotFoundError("p"), 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RetriesFor(tt.err, tt.jobRetries))
		})
	}
}
