// Package testutil provides testing utilities for the ActionNetwork loader.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// BasePath is the API path prefix the mock serves under.
const BasePath = "/api/v2"

// MockActionNetwork is a configurable mock of the upstream OSDI API.
// It tracks request counts and the peak number of concurrent in-flight
// requests so pacing tests can assert the concurrency ceiling.
type MockActionNetwork struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount  int
	requestsByURI map[string]int
	inFlight      int
	maxInFlight   int
	lastToken     string
}

// NewMockActionNetwork creates a new mock upstream server.
func NewMockActionNetwork() *MockActionNetwork {
	mock := &MockActionNetwork{
		handlers:      make(map[string]http.HandlerFunc),
		requestsByURI: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestsByURI[r.URL.RequestURI()]++
		mock.lastToken = r.Header.Get("OSDI-API-Token")
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockActionNetwork) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockActionNetwork) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockActionNetwork) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestsByURI = make(map[string]int)
	m.maxInFlight = 0
	m.lastToken = ""
}

// SetHandler sets a custom handler for a resource path (relative to
// the API prefix, e.g. "lists").
func (m *MockActionNetwork) SetHandler(resource string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[BasePath+"/"+resource] = handler
}

// SetCollection serves a paginated OSDI collection for a resource.
// Items are split into pages of perPage; the `_embedded` object is
// omitted entirely on empty pages, matching upstream behavior.
func (m *MockActionNetwork) SetCollection(resource, extractKey string, items []map[string]any, perPage int) {
	m.SetHandler(resource, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		totalPages := (len(items) + perPage - 1) / perPage
		if totalPages < 1 {
			totalPages = 1
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		pageItems := items[start:end]

		envelope := map[string]any{
			"total_pages": totalPages,
			"per_page":    perPage,
			"page":        page,
		}
		if len(pageItems) > 0 {
			envelope["_embedded"] = map[string]any{
				"osdi:" + extractKey: pageItems,
			}
		}

		writeJSON(w, envelope)
	})
}

// SetPerson serves a single person resource under "people/<id>".
func (m *MockActionNetwork) SetPerson(id string, person map[string]any) {
	m.SetHandler("people/"+id, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, person)
	})
}

// FailResource makes a resource respond with the given status code.
func (m *MockActionNetwork) FailResource(resource string, statusCode int) {
	m.SetHandler(resource, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"error": "injected failure"}`)
	})
}

// FailPage makes a specific page of a collection fail while other
// pages are served by the existing handler.
func (m *MockActionNetwork) FailPage(resource string, failPage int, statusCode int, fallback http.HandlerFunc) {
	m.SetHandler(resource, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == strconv.Itoa(failPage) {
			w.WriteHeader(statusCode)
			fmt.Fprintf(w, `{"error": "injected failure"}`)
			return
		}
		fallback(w, r)
	})
}

// RequestCount returns the total number of requests served.
func (m *MockActionNetwork) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// RequestsFor returns the number of requests for an exact request URI.
func (m *MockActionNetwork) RequestsFor(uri string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestsByURI[uri]
}

// MaxInFlight returns the peak number of concurrent requests observed.
func (m *MockActionNetwork) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastToken returns the OSDI-API-Token header of the last request.
func (m *MockActionNetwork) LastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastToken
}

// Credentials returns a static credential source pointing at this
// mock server.
func (m *MockActionNetwork) Credentials(token string) StaticCredentials {
	return StaticCredentials{
		"ACTION_NETWORK_API_KEY":      token,
		"ACTION_NETWORK_API_DOMAIN":   m.server.URL,
		"ACTION_NETWORK_API_BASE_URL": BasePath,
	}
}

// StaticCredentials is a fixed key/value credential source for tests.
// The organization argument is ignored.
type StaticCredentials map[string]string

// Get returns the configured value, or "" when unset.
func (s StaticCredentials) Get(key, organization string) string {
	return s[key]
}

// MembershipItems builds n list-membership items referencing persons
// person-0..person-(n-1).
func MembershipItems(n int) []map[string]any {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{
			"action_network:person_id": fmt.Sprintf("person-%d", i),
		}
	}
	return items
}

// PersonFixture builds a minimal valid upstream person record.
func PersonFixture(givenName, familyName, phone string) map[string]any {
	return map[string]any{
		"given_name":  givenName,
		"family_name": familyName,
		"custom_fields": map[string]any{
			"Phone": phone,
		},
		"postal_addresses": []map[string]any{
			{"primary": true, "postal_code": "10001"},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
