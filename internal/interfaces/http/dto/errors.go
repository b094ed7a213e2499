package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeDatabase is used when the database rejects or fails an operation
	ErrCodeDatabase = "ERR_DATABASE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeMissingField is used when a required intake field is absent
	ErrCodeMissingField = "ERR_VALIDATION_REQUIRED"
	// ErrCodePayloadTooLarge is used when the request body exceeds the limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeUnauthorizedWorker is used when the worker secret does not match
	ErrCodeUnauthorizedWorker = "ERR_UNAUTHORIZED_WORKER"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeDuplicateFolio is used when a fiscal folio was already submitted
	ErrCodeDuplicateFolio = "ERR_DUPLICATE_FOLIO"
)

// Document error codes
const (
	ErrCodeInvalidDocument    = "ERR_INVALID_DOCUMENT"
	ErrCodeMissingFiscalFolio = "ERR_MISSING_FISCAL_FOLIO"
	ErrCodeCrossValidation    = "ERR_CROSS_VALIDATION"
	ErrCodeStorageUpload      = "ERR_STORAGE_UPLOAD"
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition  = "ERR_INVALID_SYNC_TRANSITION"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Availability error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeRequeueFailed is used when a resync could not reach the queue
	ErrCodeRequeueFailed = "ERR_REQUEUE_FAILED"
	// ErrCodeTimeout is used when a request exceeds its deadline
	ErrCodeTimeout = "ERR_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeDatabase: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeMissingField:    http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeUnauthorizedWorker: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeAlreadyExists:  http.StatusConflict,
	ErrCodeDuplicateFolio: http.StatusConflict,

	// Document errors
	ErrCodeInvalidDocument:    http.StatusBadRequest,
	ErrCodeMissingFiscalFolio: http.StatusBadRequest,
	ErrCodeCrossValidation:    http.StatusBadRequest,
	ErrCodeStorageUpload:      http.StatusInternalServerError,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:  http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Availability
	ErrCodeRateLimited:   http.StatusTooManyRequests,
	ErrCodeRequeueFailed: http.StatusServiceUnavailable,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                      ErrCodeNotFound,
	"ALREADY_EXISTS":                 ErrCodeAlreadyExists,
	"INVALID_INPUT":                  ErrCodeInvalidInput,
	"INVALID_STATE":                  ErrCodeInvalidState,
	"UNAUTHORIZED":                   ErrCodeUnauthorized,
	"FORBIDDEN":                      ErrCodeForbidden,
	"DATABASE_ERROR":                 ErrCodeDatabase,
	"MISSING_REQUIRED_FIELD":         ErrCodeMissingField,
	"INVALID_DOCUMENT_FORMAT":        ErrCodeInvalidDocument,
	"MISSING_FISCAL_FOLIO":           ErrCodeMissingFiscalFolio,
	"CROSS_VALIDATION_MISMATCH":      ErrCodeCrossValidation,
	"STORAGE_UPLOAD_ERROR":           ErrCodeStorageUpload,
	"DUPLICATE_FOLIO":                ErrCodeDuplicateFolio,
	"UNAUTHORIZED_WORKER_INVOCATION": ErrCodeUnauthorizedWorker,
	"INVALID_SYNC_TRANSITION":        ErrCodeInvalidTransition,
	"REQUEUE_FAILED":                 ErrCodeRequeueFailed,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
