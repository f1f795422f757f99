package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request binding fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeConflict is used for resource conflicts
	ErrCodeConflict = "CONFLICT"
	// ErrCodeRateLimited is used when the client exceeds the rate limit
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeMissingTenant is used when the tenant header is absent or malformed
	ErrCodeMissingTenant = "MISSING_TENANT"
)

// errorCodeHTTPStatus maps known error codes to HTTP status codes. Codes
// produced by the domain and the adapter taxonomy both appear here, so one
// table decides every response status.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeRateLimited:   http.StatusTooManyRequests,
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeMissingTenant: http.StatusBadRequest,

	// shared domain sentinels
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"INVALID_TRANSITION":   http.StatusUnprocessableEntity,
	"INVALID_EVIDENCE":     http.StatusUnprocessableEntity,
	"BELOW_MINIMUM_ORDER":  http.StatusUnprocessableEntity,

	// adapter taxonomy (integration.Code*)
	"CONFIGURATION_ERROR":      http.StatusBadRequest,
	"CONNECTION_ERROR":         http.StatusBadGateway,
	"FETCH_ERROR":              http.StatusBadGateway,
	"SCHEMA_CHANGED":           http.StatusBadGateway,
	"ORDER_REJECTED":           http.StatusUnprocessableEntity,
	"ORDER_UNREACHABLE":        http.StatusBadGateway,
	"SYNC_CONFLICT":            http.StatusConflict,
	"CAPABILITY_NOT_SUPPORTED": http.StatusUnprocessableEntity,

	// document handling
	"NO_DOCUMENT": http.StatusNotFound,
}

// GetHTTPStatus returns the HTTP status for an error code. Codes absent from
// the table fall back on naming conventions before defaulting to 500, so a
// new domain code degrades to a sensible status instead of an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_EXISTS"):
		return http.StatusConflict
	case strings.HasPrefix(code, "INVALID_"), strings.HasPrefix(code, "VALIDATION"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "NOT_CONFIGURED"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
