package contacts

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for list resolution.
var (
	anlContactsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anl_contacts_resolved_total",
		Help: "Total membership items resolved into contacts",
	})

	anlContactsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anl_contacts_skipped_total",
		Help: "Total membership items skipped by reason",
	}, []string{"reason"})
)

// ItemsFetcher fetches and aggregates a whole paginated collection.
type ItemsFetcher interface {
	FetchItems(ctx context.Context, resource, extractKey, organization string, maxItems int) ([]json.RawMessage, error)
}

// ResourceFetcher fetches a single upstream resource.
type ResourceFetcher interface {
	GetResource(ctx context.Context, resource string, organization string, out any) error
}

// membershipItem links a list to a (possibly absent) person record.
type membershipItem struct {
	PersonID string `json:"action_network:person_id"`
}

// Resolver walks list-membership items and resolves each referenced
// person into a normalized contact.
type Resolver struct {
	items    ItemsFetcher
	resource ResourceFetcher
	tz       TimezoneLookup
}

// NewResolver creates a resolver over the given fetchers.
func NewResolver(items ItemsFetcher, resource ResourceFetcher, tz TimezoneLookup) *Resolver {
	return &Resolver{
		items:    items,
		resource: resource,
		tz:       tz,
	}
}

// ResolveContacts fetches the membership items of a list and resolves
// them into contacts for the campaign. A failed pagination run is
// fatal; a failed person lookup or normalization only skips that item.
// Items without a person reference are skipped silently: not every
// membership references a full person record.
func (r *Resolver) ResolveContacts(ctx context.Context, listIdentifier, campaignID, organization string, maxContacts int) ([]NormalizedContact, error) {
	logger := log.With().
		Str("component", "resolver").
		Str("list", listIdentifier).
		Str("campaign_id", campaignID).
		Logger()

	items, err := r.items.FetchItems(ctx, "lists/"+listIdentifier+"/items", "items", organization, maxContacts)
	if err != nil {
		return nil, err
	}

	contacts := []NormalizedContact{}
	for _, raw := range items {
		var item membershipItem
		if err := json.Unmarshal(raw, &item); err != nil {
			anlContactsSkippedTotal.WithLabelValues("decode").Inc()
			logger.Warn().Err(err).Msg("Skipping undecodable membership item")
			continue
		}
		if item.PersonID == "" {
			continue
		}

		var person Person
		if err := r.resource.GetResource(ctx, "people/"+item.PersonID, organization, &person); err != nil {
			anlContactsSkippedTotal.WithLabelValues("person_fetch").Inc()
			logger.Warn().
				Err(err).
				Str("person_id", item.PersonID).
				Msg("Skipping item: person fetch failed")
			continue
		}

		contact, err := MakeContact(person, campaignID, r.tz)
		if err != nil {
			anlContactsSkippedTotal.WithLabelValues("normalize").Inc()
			logger.Warn().
				Err(err).
				Str("person_id", item.PersonID).
				Msg("Skipping item: normalization failed")
			continue
		}

		anlContactsResolvedTotal.Inc()
		contacts = append(contacts, contact)
	}

	logger.Info().
		Int("items", len(items)).
		Int("contacts", len(contacts)).
		Msg("List resolution complete")

	return contacts, nil
}
