package backend

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches every connection failure and non-2xx response.
var ErrUnavailable = errors.New("backend unavailable")

// UnavailableError describes a failed backend call.
// StatusCode is zero when no response was received.
type UnavailableError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnavailable) match.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
