// Package contacts converts upstream person and list records into the
// host's bulk-insertable contact schema.
package contacts

import (
	"fmt"
)

// Fixed values of the output schema.
const (
	// MessageStatusInitial is the only status this loader ever sets.
	MessageStatusInitial = "needsMessage"

	// FallbackPostalCode is used when no address is flagged primary.
	// Boston; only relevant for timezone derivation.
	FallbackPostalCode = "02118"

	// PhoneField is the custom field holding the contact's number.
	PhoneField = "Phone"

	// countryPrefix is prepended verbatim to the raw phone value.
	countryPrefix = "+1"
)

// Person is an upstream person record.
type Person struct {
	GivenName       string            `json:"given_name"`
	FamilyName      string            `json:"family_name"`
	CustomFields    map[string]string `json:"custom_fields"`
	PostalAddresses []PostalAddress   `json:"postal_addresses"`
}

// PostalAddress is one of a person's addresses.
type PostalAddress struct {
	Primary    bool   `json:"primary"`
	PostalCode string `json:"postal_code"`
}

// NormalizedContact is one row of the host contact table.
type NormalizedContact struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Cell           string `json:"cell"`
	Zip            string `json:"zip"`
	TimezoneOffset string `json:"timezone_offset"`
	MessageStatus  string `json:"message_status"`
	CampaignID     string `json:"campaign_id"`
}

// TimezoneLookup resolves a timezone offset for a postal code.
type TimezoneLookup interface {
	TimezoneForPostalCode(code string) string
}

// MissingFieldError reports a person record that cannot be normalized.
type MissingFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("contact missing %s field", e.Field)
}

// MakeContact converts an upstream person into a contact row for the
// given campaign. The phone value is prefixed with the country code
// verbatim: no validation or digit-stripping happens here, malformed
// numbers are left to the host's contact pipeline.
func MakeContact(person Person, campaignID string, tz TimezoneLookup) (NormalizedContact, error) {
	phone, ok := person.CustomFields[PhoneField]
	if !ok {
		return NormalizedContact{}, &MissingFieldError{Field: PhoneField}
	}

	postalCode := FallbackPostalCode
	for _, address := range person.PostalAddresses {
		if address.Primary {
			postalCode = address.PostalCode
		}
	}

	return NormalizedContact{
		FirstName:      person.GivenName,
		LastName:       person.FamilyName,
		Cell:           countryPrefix + phone,
		Zip:            postalCode,
		TimezoneOffset: tz.TimezoneForPostalCode(postalCode),
		MessageStatus:  MessageStatusInitial,
		CampaignID:     campaignID,
	}, nil
}
