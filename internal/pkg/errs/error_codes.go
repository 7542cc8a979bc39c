/*
Package errs provides the error type and application error codes used by the HTTP side API.

The WebSocket protocol never carries error codes; malformed or rejected frames are
logged and dropped. These codes only appear in JSON responses of the /api routes.
*/
package errs

// 1xxx: request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 4xxx: lobby server state errors
const (
	// ErrServerUnavailable indicates that the hub is shutting down and cannot answer queries.
	ErrServerUnavailable = 4001
)

// 5xxx: internal system errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
