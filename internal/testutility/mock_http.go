package testutility

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

// MockResponse is what the MockHTTPServer answers for a path.
type MockResponse struct {
	// Status defaults to 200.
	Status int
	Header http.Header
	Body   []byte
}

// RecordedRequest is a request received by the MockHTTPServer.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type MockHTTPServer struct {
	*httptest.Server
	mu            sync.Mutex
	response      map[string]MockResponse // "METHOD path" or "path" -> response
	authorization string                  // expected Authorization header contents
	challenge     string                  // Www-Authenticate header of unauthorized responses
	requests      []RecordedRequest
}

// NewMockHTTPServer starts and returns a new simple HTTP Server for mocking basic requests.
// The Server will automatically be shut down with Close() in the test Cleanup function.
//
// Use SetResponse / SetMethodResponse / SetResponseFromFile to set the
// responses for specific URL paths.
func NewMockHTTPServer(t *testing.T) *MockHTTPServer {
	t.Helper()
	mock := &MockHTTPServer{response: make(map[string]MockResponse)}
	mock.Server = httptest.NewServer(mock)
	t.Cleanup(func() { mock.Server.Close() })

	return mock
}

// SetResponse sets the Server's response for the URL path to be response bytes, for any method.
func (m *MockHTTPServer) SetResponse(t *testing.T, path string, response []byte) {
	t.Helper()
	m.SetMethodResponse(t, "", path, MockResponse{Body: response})
}

// SetMethodResponse sets the Server's full response for the method and URL path.
// An empty method matches every method without a more specific response.
func (m *MockHTTPServer) SetMethodResponse(t *testing.T, method, path string, response MockResponse) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response[key(method, path)] = response
}

// SetResponseFromFile sets the Server's response for the URL path to be the contents of the file at filename.
func (m *MockHTTPServer) SetResponseFromFile(t *testing.T, path string, filename string) {
	t.Helper()
	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read response file: %v", err)
	}
	m.SetResponse(t, path, b)
}

// SetAuthorization sets the contents of the 'Authorization' header the server expects for all endpoints.
//
// The incoming requests' headers must match the auth string exactly, otherwise the server will response with 401 Unauthorized.
// If authorization is unset or empty, the server will not require authorization.
func (m *MockHTTPServer) SetAuthorization(t *testing.T, auth string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorization = auth
}

// SetChallenge sets the 'Www-Authenticate' header sent along with the 401 Unauthorized responses
// of requests that do not carry the expected authorization.
func (m *MockHTTPServer) SetChallenge(t *testing.T, challenge string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenge = challenge
}

// Requests returns every request received so far, in order.
func (m *MockHTTPServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]RecordedRequest(nil), m.requests...)
}

// ServeHTTP is the http.Handler for the underlying httptest.Server.
func (m *MockHTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	wantAuth := m.authorization
	challenge := m.challenge
	resp, ok := m.response[key(r.Method, r.URL.EscapedPath())]
	if !ok {
		resp, ok = m.response[key("", r.URL.EscapedPath())]
	}
	m.mu.Unlock()

	switch {
	case wantAuth != "" && r.Header.Get("Authorization") != wantAuth:
		resp = MockResponse{Status: http.StatusUnauthorized, Body: []byte("unauthorized")}
		if challenge != "" {
			resp.Header = http.Header{"Www-Authenticate": {challenge}}
		}
	case !ok:
		resp = MockResponse{Status: http.StatusNotFound, Body: []byte("not found")}
	}

	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	if resp.Status != 0 {
		w.WriteHeader(resp.Status)
	}

	if _, err := w.Write(resp.Body); err != nil {
		log.Fatalf("Write: %v", err)
	}
}

func key(method, path string) string {
	return method + " " + strings.TrimPrefix(path, "/")
}
