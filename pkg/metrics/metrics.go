// Package metrics provides the centralized Prometheus metrics registry
// for the loader. All metrics are defined in their respective packages
// (client, pagination, ratelimit, contacts, loader, cache) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the loader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - anl_requests_total{resource, status} (Counter): Upstream requests by resource and HTTP status
//   - anl_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - anl_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Retry Metrics (pkg/client):
//   - anl_retries_total{error_class} (Counter): Retry attempts by error class
//   - anl_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - anl_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pacing Metrics (pkg/ratelimit):
//   - anl_pacer_waits_total (Counter): Cooldown waits before tranche dispatch
//   - anl_pacer_wait_seconds (Histogram): Time spent waiting for the next allowed dispatch
//
// Pagination Metrics (pkg/pagination):
//   - anl_pagination_runs_total{outcome} (Counter): Pagination runs by outcome (ok, failed)
//   - anl_pagination_pages (Histogram): Pages fetched per run
//
// Resolution Metrics (pkg/contacts):
//   - anl_contacts_resolved_total (Counter): Membership items resolved into contacts
//   - anl_contacts_skipped_total{reason} (Counter): Items skipped (decode, person_fetch, normalize)
//
// Load Metrics (pkg/loader):
//   - anl_loads_total{outcome} (Counter): Contact loads by outcome (ok, failed)
//   - anl_load_contacts (Histogram): Contacts written per successful load
//
// Cache Metrics (pkg/cache):
//   - anl_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - anl_cache_misses_total (Counter): Cache misses
//   - anl_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - anl_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(anl_cache_hits_total[5m])) /
//   (sum(rate(anl_cache_hits_total[5m])) + sum(rate(anl_cache_misses_total[5m])))
//
//   # Skip Rate During Resolution
//   rate(anl_contacts_skipped_total[5m]) / rate(anl_contacts_resolved_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(anl_request_duration_seconds_bucket[5m]))
//
//   # Failed Loads
//   rate(anl_loads_total{outcome="failed"}[5m])
