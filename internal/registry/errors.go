package registry

import (
	"errors"
	"fmt"
)

// ErrRegistryAccess is wrapped by every AccessError.
var ErrRegistryAccess = errors.New("registry access error")

// AccessError is returned when the registry cannot be reached, or refuses a
// token or manifest request.
type AccessError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *AccessError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("error accessing %s: %s", e.URL, e.Reason)
	}

	return fmt.Sprintf("error accessing %s: status code %d", e.URL, e.StatusCode)
}

func (e *AccessError) Unwrap() error {
	return ErrRegistryAccess
}
