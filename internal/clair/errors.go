package clair

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrResourceNotFound is returned when Clair, or the place an artifact
	// is fetched from, does not know the requested resource.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnsupportedOperation is returned by protocols lacking an endpoint.
	ErrUnsupportedOperation = errors.New("operation not supported by this Clair api")
)

// ConnectionError is any non-success answer from Clair other than a missing
// resource. It carries the response for diagnostics.
type ConnectionError struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("bad response from Clair on %s: %s", e.URL, e.Status)
}
