package cache

import (
	"strings"
)

// Key identifies a cached client-choice payload. Choice data depends
// on the organization's credentials and the campaign asking.
type Key struct {
	// Organization is the credential scope.
	Organization string

	// CampaignID is the campaign the choices are rendered for.
	CampaignID string
}

// String generates a deterministic cache key string.
// Format: anl:choices:<organization>:<campaign_id>
func (k Key) String() string {
	parts := []string{"anl", "choices"}

	org := strings.TrimSpace(k.Organization)
	if org == "" {
		org = "default"
	}
	parts = append(parts, org)

	if k.CampaignID != "" {
		parts = append(parts, k.CampaignID)
	}

	return strings.Join(parts, ":")
}
