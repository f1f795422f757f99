package integration

import "errors"

// Adapter errors. Every provider failure surfaced to callers is one of these
// sentinels (possibly wrapped with detail), so the rest of the system reasons
// about supplier problems without knowing which transport produced them.
var (
	// ErrNotConfigured means the connection is missing required configuration
	ErrNotConfigured = errors.New("integration: connection not configured")
	// ErrConnectionFailed means the supplier system could not be reached or rejected authentication
	ErrConnectionFailed = errors.New("integration: supplier connection failed")
	// ErrFetchFailed means the supplier was reached but catalog retrieval failed
	ErrFetchFailed = errors.New("integration: catalog fetch failed")
	// ErrSchemaChanged means a scraped portal no longer matches the expected page structure
	ErrSchemaChanged = errors.New("integration: portal layout changed")
	// ErrOrderRejected means the supplier refused the order
	ErrOrderRejected = errors.New("integration: order rejected by supplier")
	// ErrOrderUnreachable means the order could not be delivered to the supplier
	ErrOrderUnreachable = errors.New("integration: supplier unreachable for order submission")
	// ErrSyncConflict means an external change could not be applied cleanly
	ErrSyncConflict = errors.New("integration: sync conflict")
	// ErrCapabilityNotSupported means the adapter cannot perform the requested operation
	ErrCapabilityNotSupported = errors.New("integration: capability not supported")
)

// Error codes as exposed on API responses and structured logs
const (
	CodeConfigurationError     = "CONFIGURATION_ERROR"
	CodeConnectionError        = "CONNECTION_ERROR"
	CodeFetchError             = "FETCH_ERROR"
	CodeSchemaChanged          = "SCHEMA_CHANGED"
	CodeOrderRejected          = "ORDER_REJECTED"
	CodeOrderUnreachable       = "ORDER_UNREACHABLE"
	CodeSyncConflict           = "SYNC_CONFLICT"
	CodeCapabilityNotSupported = "CAPABILITY_NOT_SUPPORTED"
)

// CodeOf maps an adapter error to its taxonomy code. Unrecognized errors map
// to the empty string so callers can fall through to their own handling.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return CodeConfigurationError
	case errors.Is(err, ErrConnectionFailed):
		return CodeConnectionError
	case errors.Is(err, ErrFetchFailed):
		return CodeFetchError
	case errors.Is(err, ErrSchemaChanged):
		return CodeSchemaChanged
	case errors.Is(err, ErrOrderRejected):
		return CodeOrderRejected
	case errors.Is(err, ErrOrderUnreachable):
		return CodeOrderUnreachable
	case errors.Is(err, ErrSyncConflict):
		return CodeSyncConflict
	case errors.Is(err, ErrCapabilityNotSupported):
		return CodeCapabilityNotSupported
	default:
		return ""
	}
}

// IsRetryable reports whether a failed operation may legitimately be tried
// again. Rejections and configuration problems will not heal on retry;
// transport and portal failures might.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrFetchFailed),
		errors.Is(err, ErrOrderUnreachable):
		return true
	default:
		return false
	}
}
