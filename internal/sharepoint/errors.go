// Package sharepoint provides a client for the SharePoint REST API:
// dual-flow token acquisition, per-site form digest management, single
// and batched list item operations, and error classification.
package sharepoint

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the client's failure taxonomy.
// Use errors.Is(err, sharepoint.ErrTimeout) to check.
var (
	// ErrAuthentication covers token acquisition failures in either flow.
	// Never retried by the client; re-invocation is the caller's choice.
	ErrAuthentication = errors.New("sharepoint: authentication failed")

	// ErrDigestExpired is surfaced when a mutating call is still rejected
	// for a stale digest after the one sanctioned refetch-and-retry.
	ErrDigestExpired = errors.New("sharepoint: request digest expired")

	// ErrNetwork covers transport failures other than deadline expiry.
	ErrNetwork = errors.New("sharepoint: network error")

	// ErrTimeout is returned when the per-call deadline elapses.
	ErrTimeout = errors.New("sharepoint: request timed out")

	// ErrBatchProtocol indicates a malformed or truncated $batch response.
	// Fatal for the whole batch; no partial outcomes are produced.
	ErrBatchProtocol = errors.New("sharepoint: malformed batch response")
)

// Status-classification sentinels for backend-reported errors.
var (
	ErrBadRequest   = errors.New("sharepoint: bad request")
	ErrUnauthorized = errors.New("sharepoint: unauthorized")
	ErrForbidden    = errors.New("sharepoint: forbidden")
	ErrNotFound     = errors.New("sharepoint: not found")
	ErrConflict     = errors.New("sharepoint: conflict")
	ErrThrottled    = errors.New("sharepoint: throttled")
	ErrServerError  = errors.New("sharepoint: server error")
)

// BackendError wraps a non-2xx response from the backend with its status
// code and body. Backend errors are surfaced verbatim and never retried:
// most are semantic ("list not found"), not transient.
type BackendError struct {
	StatusCode int
	Body       string
	Err        error // classification sentinel, for errors.Is()
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("sharepoint: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
