package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/civicworks/actionnetwork-loader/pkg/client"
	"github.com/civicworks/actionnetwork-loader/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination runs.
var (
	anlPaginationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anl_pagination_runs_total",
		Help: "Total pagination runs by outcome",
	}, []string{"outcome"})

	anlPaginationPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anl_pagination_pages",
		Help:    "Pages fetched per pagination run",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})
)

// Config holds paginator configuration.
type Config struct {
	// RequestsPerSecond is the upstream quota and therefore the
	// tranche width. The limit is assumed per-token; lower it when
	// several organizations share one egress IP.
	RequestsPerSecond int

	// Cooldown separates tranches. It should exceed one second so a
	// strict per-second window is never violated by clock skew.
	Cooldown time.Duration

	// Clock is injected for deterministic tests (nil = system clock).
	Clock ratelimit.Clock
}

// DefaultConfig returns the stock configuration for the upstream
// 4 req/s ceiling.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 4,
		Cooldown:          1100 * time.Millisecond,
	}
}

// PageFetcher fetches a single page of a resource collection.
type PageFetcher interface {
	GetPage(ctx context.Context, resource string, page int, organization string) (*client.PageEnvelope, error)
}

// Paginator fetches whole paginated collections under the quota.
type Paginator struct {
	fetcher PageFetcher
	config  Config
}

// New creates a paginator. Zero config fields fall back to defaults.
func New(fetcher PageFetcher, config Config) *Paginator {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 4
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 1100 * time.Millisecond
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAllPages fetches pages 1..pagesNeeded of a resource collection.
// maxItems <= 0 means unbounded; otherwise pagesNeeded is
// min(totalPages, max(1, maxItems/perPage)). The returned slice is
// indexed by page number (slot 0 = page 1) regardless of completion
// order. Any single page failure aborts the run.
func (p *Paginator) FetchAllPages(ctx context.Context, resource string, organization string, maxItems int) ([]*client.PageEnvelope, error) {
	start := time.Now()

	first, err := p.fetcher.GetPage(ctx, resource, 1, organization)
	if err != nil {
		anlPaginationRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	// The discovery request consumed one slot of the current window.
	pacer := ratelimit.NewPacer(p.config.Cooldown, p.config.Clock, log.With().Str("component", "paginator").Logger())
	pacer.Advance()

	pagesNeeded := first.TotalPages
	if maxItems > 0 {
		bounded := maxItems / first.PerPage
		if bounded < 1 {
			bounded = 1
		}
		if bounded < pagesNeeded {
			pagesNeeded = bounded
		}
	}

	log.Info().
		Str("resource", resource).
		Int("total_pages", first.TotalPages).
		Int("pages_needed", pagesNeeded).
		Msg("Starting paced page fetch")

	envelopes := make([]*client.PageEnvelope, pagesNeeded)
	envelopes[0] = first

	if pagesNeeded == 1 {
		anlPaginationRunsTotal.WithLabelValues("ok").Inc()
		anlPaginationPages.Observe(1)
		log.Info().
			Str("resource", resource).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return envelopes, nil
	}

	work := make([]int, 0, pagesNeeded-1)
	for page := 2; page <= pagesNeeded; page++ {
		work = append(work, page)
	}

	width := p.config.RequestsPerSecond
	for trancheStart := 0; trancheStart < len(work); trancheStart += width {
		// One request slot of the first window went to discovery, so
		// any remainder wider than width-1 must respect the cooldown.
		if len(work) > width-1 {
			if err := pacer.Wait(ctx); err != nil {
				anlPaginationRunsTotal.WithLabelValues("failed").Inc()
				return nil, fmt.Errorf("cooldown wait: %w", err)
			}
		}

		trancheEnd := trancheStart + width
		if trancheEnd > len(work) {
			trancheEnd = len(work)
		}
		tranche := work[trancheStart:trancheEnd]

		// Each fetch writes its own slot; no shared mutable state.
		errs := make([]error, len(tranche))
		var wg sync.WaitGroup
		for i, page := range tranche {
			wg.Add(1)
			go func(i, page int) {
				defer wg.Done()
				envelope, err := p.fetcher.GetPage(ctx, resource, page, organization)
				if err != nil {
					errs[i] = err
					return
				}
				envelopes[page-1] = envelope
			}(i, page)
		}
		wg.Wait()
		pacer.Advance()

		for i, err := range errs {
			if err != nil {
				anlPaginationRunsTotal.WithLabelValues("failed").Inc()
				log.Error().
					Err(err).
					Str("resource", resource).
					Int("page", tranche[i]).
					Msg("Page fetch failed - aborting pagination run")
				return nil, err
			}
		}
	}

	anlPaginationRunsTotal.WithLabelValues("ok").Inc()
	anlPaginationPages.Observe(float64(pagesNeeded))

	log.Info().
		Str("resource", resource).
		Int("pages", pagesNeeded).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return envelopes, nil
}

// FetchItems fetches all pages and aggregates the embedded items for
// the extract key.
func (p *Paginator) FetchItems(ctx context.Context, resource, extractKey, organization string, maxItems int) ([]json.RawMessage, error) {
	envelopes, err := p.FetchAllPages(ctx, resource, organization, maxItems)
	if err != nil {
		return nil, err
	}
	return Aggregate(extractKey, envelopes), nil
}
