// Package httputil provides HTTP status code constants and classification
// helpers used by the admin error middleware to decide log severity.
//
// Utilities:
//   - HTTP status code constants and thresholds
//   - Status code validation functions (IsServerError, IsClientError, etc.)
//
// Example usage:
//
//	import "bistro-server/internal/pkg/httputil"
//
//	// Check status code type
//	if httputil.IsServerError(statusCode) {
//	    logger.Error("server error occurred")
//	} else if httputil.IsClientError(statusCode) {
//	    logger.Warn("client error occurred")
//	}
//
//	// Use constants for clarity
//	if statusCode >= httputil.StatusInternalError {
//	    // Handle server error
//	}
package httputil
