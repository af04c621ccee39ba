// Package loader orchestrates one contact load: clear prior campaign
// contacts, resolve the chosen upstream list into normalized contacts,
// bulk-write them, and report completion to the host job system.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/civicworks/actionnetwork-loader/pkg/contacts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Loader identity surfaced to the host.
const (
	// Name is the loader's registration name.
	Name = "actionnetwork"

	// DisplayName is the human-readable loader name.
	DisplayName = "Action Network"
)

// Bulk-write parameters.
const (
	// ContactTable is the host table receiving normalized contacts.
	ContactTable = "campaign_contact"

	// InsertBatchSize bounds transaction and memory size per batch.
	InsertBatchSize = 100
)

// Prometheus metrics for load runs.
var (
	anlLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anl_loads_total",
		Help: "Total contact loads by outcome",
	}, []string{"outcome"})

	anlLoadContacts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anl_load_contacts",
		Help:    "Contacts written per successful load",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
	})
)

// Job is the host job record driving one load.
type Job struct {
	ID         string
	CampaignID string

	// Payload is a JSON object with at least
	// {"listIdentifier": string, "requestContactCount": number}.
	Payload string
}

// Payload is the parsed job payload.
type Payload struct {
	ListIdentifier      string `json:"listIdentifier"`
	RequestContactCount int    `json:"requestContactCount"`
}

// ParseError reports a malformed job payload. It is fatal and aborts
// the load before any mutation.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse job payload: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ContactStore is the host persistence layer.
type ContactStore interface {
	// DeleteByCampaign removes all contacts of a campaign.
	DeleteByCampaign(ctx context.Context, campaignID string) error

	// BulkInsert writes rows into table in batches of batchSize.
	BulkInsert(ctx context.Context, table string, rows []contacts.NormalizedContact, batchSize int) error
}

// JobNotifier reports load completion to the host job system. It is
// invoked exactly once per load, success or failure, so the host never
// leaves a job permanently pending.
type JobNotifier interface {
	CompleteLoad(ctx context.Context, job Job, loadErr error, requestedCount string, resultJSON string) error
}

// ContactResolver resolves a list into normalized contacts.
type ContactResolver interface {
	ResolveContacts(ctx context.Context, listIdentifier, campaignID, organization string, maxContacts int) ([]contacts.NormalizedContact, error)
}

// TTLSource reports the choice-cache TTL for an organization.
type TTLSource interface {
	CacheTTLSeconds(organization string) int
}

// Orchestrator drives loads and the client-choice surface.
type Orchestrator struct {
	resolver ContactResolver
	lists    contacts.ItemsFetcher
	store    ContactStore
	notifier JobNotifier
	ttl      TTLSource
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Resolver ContactResolver
	Lists    contacts.ItemsFetcher
	Store    ContactStore
	Notifier JobNotifier
	TTL      TTLSource
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("contact resolver is required")
	}
	if cfg.Lists == nil {
		return nil, fmt.Errorf("list fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("contact store is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("job notifier is required")
	}
	if cfg.TTL == nil {
		return nil, fmt.Errorf("ttl source is required")
	}

	return &Orchestrator{
		resolver: cfg.Resolver,
		lists:    cfg.Lists,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		ttl:      cfg.TTL,
	}, nil
}

// Load runs one contact load. Each step is a hard dependency on the
// previous one succeeding; whichever step fails determines the failure
// reported to the job system. The load itself owns no retry logic.
func (o *Orchestrator) Load(ctx context.Context, job Job, maxContacts int, organization string) error {
	logger := log.With().
		Str("component", "loader").
		Str("job_id", job.ID).
		Str("campaign_id", job.CampaignID).
		Str("organization", organization).
		Logger()

	payload, err := parsePayload(job.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("Load aborted: bad job payload")
		return o.fail(ctx, job, err, "")
	}
	requestedCount := strconv.Itoa(payload.RequestContactCount)

	if err := o.store.DeleteByCampaign(ctx, job.CampaignID); err != nil {
		logger.Error().Err(err).Msg("Load failed: could not clear prior contacts")
		return o.fail(ctx, job, err, requestedCount)
	}

	resolved, err := o.resolver.ResolveContacts(ctx, payload.ListIdentifier, job.CampaignID, organization, maxContacts)
	if err != nil {
		logger.Error().Err(err).Msg("Load failed: list resolution aborted")
		return o.fail(ctx, job, err, requestedCount)
	}

	if err := o.store.BulkInsert(ctx, ContactTable, resolved, InsertBatchSize); err != nil {
		logger.Error().Err(err).Msg("Load failed: bulk insert")
		return o.fail(ctx, job, err, requestedCount)
	}

	result, _ := json.Marshal(map[string]int{"finalCount": len(resolved)})
	if err := o.notifier.CompleteLoad(ctx, job, nil, requestedCount, string(result)); err != nil {
		logger.Error().Err(err).Msg("Completion callback failed")
		return fmt.Errorf("complete load: %w", err)
	}

	anlLoadsTotal.WithLabelValues("ok").Inc()
	anlLoadContacts.Observe(float64(len(resolved)))

	logger.Info().
		Int("contacts", len(resolved)).
		Str("requested", requestedCount).
		Msg("Load complete")

	return nil
}

// fail reports the failure to the job system and returns the original
// load error. A broken notifier must not mask the load failure.
func (o *Orchestrator) fail(ctx context.Context, job Job, loadErr error, requestedCount string) error {
	anlLoadsTotal.WithLabelValues("failed").Inc()

	if err := o.notifier.CompleteLoad(ctx, job, loadErr, requestedCount, ""); err != nil {
		log.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failure callback failed")
	}
	return loadErr
}

// parsePayload decodes and validates the job payload.
func parsePayload(raw string) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Payload{}, &ParseError{Err: err}
	}
	if payload.ListIdentifier == "" {
		return Payload{}, &ParseError{Err: errors.New("listIdentifier is required")}
	}
	return payload, nil
}
