package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSigner is returned by write operations on a client built
	// without a signing key.
	ErrNoSigner = errors.New("client has no signing key")

	// ErrNotFound is returned when no entry exists for a VIN or address.
	ErrNotFound = errors.New("entry not found")
)

// TransportError reports a request that could not reach the node or that
// the node refused. Rejections of individual transactions are not transport
// errors; they appear in batch statuses.
type TransportError struct {
	Op         string // "submit", "state", "batch_statuses"
	URL        string
	StatusCode int    // 0 when no response was received
	Code       string // API error code, if the body carried one
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s %s: %d %s: %s", e.Op, e.URL, e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.URL, e.StatusCode, e.Message)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
