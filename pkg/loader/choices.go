package loader

import (
	"context"
	"encoding/json"

	"github.com/civicworks/actionnetwork-loader/pkg/contacts"
	"github.com/rs/zerolog/log"
)

// ChoiceData is the client-choice payload surfaced to the host. Data
// is a serialized JSON document; ExpiresSeconds is how long the host
// may cache it (zero means non-cacheable, used for failures).
type ChoiceData struct {
	Data           string `json:"data"`
	ExpiresSeconds int    `json:"expiresSeconds,omitempty"`
}

// Availability reports whether the loader is usable for an
// organization.
type Availability struct {
	Result         bool `json:"result"`
	ExpiresSeconds int  `json:"expiresSeconds"`
}

// Available reports loader availability. There is nothing to probe:
// a missing token surfaces as a failed choice lookup instead.
func (o *Orchestrator) Available(organization string) Availability {
	return Availability{Result: true, ExpiresSeconds: 0}
}

// ClientChoiceData crawls the upstream list collection and returns the
// sorted choice options for the host's list picker. On failure it
// degrades to a non-cacheable error payload rather than propagating:
// the presentation layer only ever sees a document.
func (o *Orchestrator) ClientChoiceData(ctx context.Context, organization string) ChoiceData {
	items, err := o.lists.FetchItems(ctx, "lists", "lists", organization, 0)
	if err != nil {
		log.Error().
			Err(err).
			Str("organization", organization).
			Msg("Failed to load list choices from upstream")

		data, _ := json.Marshal(map[string]string{
			"error": "Failed to load choices from ActionNetwork",
		})
		return ChoiceData{Data: string(data)}
	}

	lists := contacts.ExtractLists(items)

	data, _ := json.Marshal(struct {
		Items []contacts.ContactList `json:"items"`
	}{Items: lists})

	return ChoiceData{
		Data:           string(data),
		ExpiresSeconds: o.ttl.CacheTTLSeconds(organization),
	}
}
