package providers

import (
	"errors"
	"fmt"

	"github.com/kindredhq/kindred-engine/pkg/retry"
)

// ConnectionError is the single error kind adapters translate transport and
// auth failures into. The data manager relies on this contract to treat a
// failing provider as a miss on read paths.
type ConnectionError struct {
	Provider string
	Op       string
	Err      error
}

// NewConnectionError wraps err with provider attribution.
func NewConnectionError(provider, op string, err error) *ConnectionError {
	return &ConnectionError{Provider: provider, Op: op, Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRetryable delegates to the underlying failure so transient transport
// errors can be retried while auth failures stop immediately.
func (e *ConnectionError) IsRetryable() bool {
	return retry.IsRetryable(e.Err)
}

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
