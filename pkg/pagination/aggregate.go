package pagination

import (
	"encoding/json"

	"github.com/civicworks/actionnetwork-loader/pkg/client"
)

// Aggregate concatenates the embedded item arrays of all envelopes for
// the given extract key. Envelopes missing the embedded key contribute
// zero items; upstream omits the key on empty pages.
func Aggregate(extractKey string, envelopes []*client.PageEnvelope) []json.RawMessage {
	items := []json.RawMessage{}
	for _, envelope := range envelopes {
		if envelope == nil {
			continue
		}
		items = append(items, envelope.Items(extractKey)...)
	}
	return items
}
