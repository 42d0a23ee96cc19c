package upstream

import (
	"errors"
	"fmt"
)

// ErrAuthExpired is returned when the backend answers 401. The caller must
// clear the session store and send the client back to the login surface.
var ErrAuthExpired = errors.New("upstream: authentication expired")

// ErrUnrecognizedEnvelope is returned when a backend response decodes as
// none of the known envelope shapes. It is recoverable: callers surface an
// "unavailable" notice with an empty list instead of an error banner.
var ErrUnrecognizedEnvelope = errors.New("upstream: unrecognized response envelope")

// RemoteError is a non-2xx response or a transport failure. It is never
// fatal; the operation is abandoned and prior state preserved, retries are
// user-initiated.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream: %s failed with status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream: %s failed: %s", e.Op, e.Message)
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
