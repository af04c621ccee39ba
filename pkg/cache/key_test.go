package cache

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "organization and campaign",
			key:      Key{Organization: "org-1", CampaignID: "campaign-7"},
			expected: "anl:choices:org-1:campaign-7",
		},
		{
			name:     "organization only",
			key:      Key{Organization: "org-1"},
			expected: "anl:choices:org-1",
		},
		{
			name:     "empty organization falls back to default",
			key:      Key{CampaignID: "campaign-7"},
			expected: "anl:choices:default:campaign-7",
		},
		{
			name:     "whitespace organization falls back to default",
			key:      Key{Organization: "   "},
			expected: "anl:choices:default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
