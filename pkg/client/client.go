// Package client provides the core ActionNetwork HTTP client with
// per-organization credentials, typed retrieval errors, and an
// opt-in retry policy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream requests.
var (
	anlRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anl_requests_total",
		Help: "Total upstream requests by resource and status",
	}, []string{"resource", "status"})

	anlRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anl_request_duration_seconds",
		Help:    "Upstream request duration in seconds by resource",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	anlErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anl_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Configuration keys resolved through the credential source.
const (
	KeyAPIToken = "ACTION_NETWORK_API_KEY"
	KeyDomain   = "ACTION_NETWORK_API_DOMAIN"
	KeyBasePath = "ACTION_NETWORK_API_BASE_URL"
	KeyCacheTTL = "ACTION_NETWORK_CONTACT_LOADER_CACHE_TTL"
)

// Fallbacks when the credential source has no override.
const (
	DefaultDomain   = "https://actionnetwork.org"
	DefaultBasePath = "/api/v2"
)

// osdiTokenHeader carries the per-organization API secret.
const osdiTokenHeader = "OSDI-API-Token"

// CredentialSource resolves organization-scoped configuration values.
// An empty string means the key is unset and the default applies.
// Implementations must be safe for concurrent use: every in-flight
// page fetch reads through this interface.
type CredentialSource interface {
	Get(key, organization string) string
}

// PageEnvelope is one page of a paginated resource collection.
type PageEnvelope struct {
	TotalPages int `json:"total_pages"`
	PerPage    int `json:"per_page"`
	Page       int `json:"page"`

	// Embedded holds the namespaced item arrays. Upstream omits the
	// whole object on empty pages.
	Embedded map[string]json.RawMessage `json:"_embedded"`
}

// Items returns the embedded item array for the given extract key.
// A missing `_embedded` object or key yields an empty slice: upstream
// omits the key on empty pages, which is not an error.
func (e *PageEnvelope) Items(key string) []json.RawMessage {
	if e.Embedded == nil {
		return nil
	}
	raw, ok := e.Embedded["osdi:"+key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// Client is the ActionNetwork API client.
type Client struct {
	httpClient  *http.Client
	credentials CredentialSource
	retry       RetryConfig
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Credentials resolves the API token and endpoint overrides per
	// organization (required).
	Credentials CredentialSource

	// HTTPClient overrides the default transport (optional).
	HTTPClient *http.Client

	// Retry is the retry policy for page and resource fetches.
	Retry RetryConfig
}

// New creates a new ActionNetwork client.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "an-client").Logger()

	return &Client{
		httpClient:  httpClient,
		credentials: cfg.Credentials,
		retry:       cfg.Retry,
		logger:      logger,
	}, nil
}

// GetPage fetches one page of a paginated resource collection and
// decodes its envelope. It never retries beyond the configured policy;
// the caller decides whether a failure aborts the run.
func (c *Client) GetPage(ctx context.Context, resource string, page int, organization string) (*PageEnvelope, error) {
	url := fmt.Sprintf("%s?page=%d", c.resourceURL(resource, organization), page)

	var envelope PageEnvelope
	if err := c.getJSON(ctx, resource, page, url, organization, &envelope); err != nil {
		return nil, err
	}

	// Upstream never reports zero; guard the pagination arithmetic.
	if envelope.TotalPages < 1 {
		envelope.TotalPages = 1
	}
	if envelope.PerPage < 1 {
		envelope.PerPage = 1
	}

	return &envelope, nil
}

// GetResource fetches a single resource (e.g. "people/<id>") and
// decodes the response body into out.
func (c *Client) GetResource(ctx context.Context, resource string, organization string, out any) error {
	return c.getJSON(ctx, resource, 0, c.resourceURL(resource, organization), organization, out)
}

// resourceURL joins the configured domain and API path prefix with the
// resource name.
func (c *Client) resourceURL(resource, organization string) string {
	domain := c.credentials.Get(KeyDomain, organization)
	if domain == "" {
		domain = DefaultDomain
	}
	basePath := c.credentials.Get(KeyBasePath, organization)
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return fmt.Sprintf("%s%s/%s", domain, basePath, resource)
}

// getJSON performs an authenticated GET and decodes the JSON body.
// Failures come back as *RetrievalError carrying the resource name and
// page number.
func (c *Client) getJSON(ctx context.Context, resource string, page int, url, organization string, out any) error {
	startTime := time.Now()
	defer func() {
		anlRequestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("resource", resource).
		Int("page", page).
		Str("organization", organization).
		Msg("HTTP GET upstream")

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &RetrievalError{Resource: resource, Page: page, Class: ErrorClassNetwork, Err: err}
		}
		req.Header.Set(osdiTokenHeader, c.credentials.Get(KeyAPIToken, organization))
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			anlErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			anlRequestsTotal.WithLabelValues(resource, "network_error").Inc()
			return &RetrievalError{Resource: resource, Page: page, Class: ErrorClassNetwork, Err: err}
		}
		defer resp.Body.Close()

		anlRequestsTotal.WithLabelValues(resource, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			class := classifyStatus(resp.StatusCode)
			anlErrorsTotal.WithLabelValues(string(class)).Inc()
			return &RetrievalError{
				Resource:   resource,
				Page:       page,
				StatusCode: resp.StatusCode,
				Class:      class,
				Err:        errors.New(resp.Status),
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			anlErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &RetrievalError{Resource: resource, Page: page, Class: ErrorClassNetwork, Err: err}
		}

		if err := json.Unmarshal(body, out); err != nil {
			anlErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return &RetrievalError{Resource: resource, Page: page, Class: ErrorClassDecode, Err: err}
		}

		return nil
	}

	err := retryWithBackoff(ctx, c.retry, c.logger, attempt, classifyError)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("resource", resource).
			Int("page", page).
			Msg("Upstream request failed")
	}
	return err
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// classifyError extracts the class from a retrieval error for the
// retry policy. Unknown errors count as network failures.
func classifyError(err error) ErrorClass {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Class
	}
	return ErrorClassNetwork
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
