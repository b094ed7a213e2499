package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeDatabase, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeMissingField, http.StatusBadRequest},
		{ErrCodeInvalidDocument, http.StatusBadRequest},
		{ErrCodeMissingFiscalFolio, http.StatusBadRequest},
		{ErrCodeCrossValidation, http.StatusBadRequest},
		{ErrCodeStorageUpload, http.StatusInternalServerError},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeUnauthorizedWorker, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeDuplicateFolio, http.StatusConflict},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeInvalidTransition, http.StatusConflict},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRequeueFailed, http.StatusServiceUnavailable},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"DATABASE_ERROR", ErrCodeDatabase},
		{"MISSING_REQUIRED_FIELD", ErrCodeMissingField},
		{"INVALID_DOCUMENT_FORMAT", ErrCodeInvalidDocument},
		{"MISSING_FISCAL_FOLIO", ErrCodeMissingFiscalFolio},
		{"CROSS_VALIDATION_MISMATCH", ErrCodeCrossValidation},
		{"STORAGE_UPLOAD_ERROR", ErrCodeStorageUpload},
		{"DUPLICATE_FOLIO", ErrCodeDuplicateFolio},
		{"UNAUTHORIZED_WORKER_INVOCATION", ErrCodeUnauthorizedWorker},
		{"INVALID_SYNC_TRANSITION", ErrCodeInvalidTransition},
		{"REQUEUE_FAILED", ErrCodeRequeueFailed},
		// API codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestEveryMappedCodeHasStatus(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", domainCode, apiCode)
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(41), resp.Meta.Total)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestErrorResponses_JSON(t *testing.T) {
	t.Run("request id", func(t *testing.T) {
		raw, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"Invoice not found","request_id":"req-1"}}`, string(raw))
	})

	t.Run("validation details", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "folio", Message: "This field is required"}})
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "folio", resp.Error.Details[0].Field)
	})

	t.Run("mismatch list", func(t *testing.T) {
		resp := NewMismatchErrorResponse("mismatch", "req-2", []string{"a", "b"})
		assert.Equal(t, ErrCodeCrossValidation, resp.Error.Code)
		assert.Equal(t, []string{"a", "b"}, resp.Error.Errors)
		assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(resp.Error.Code))
	})
}
