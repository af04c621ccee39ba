package contacts

import (
	"errors"
	"testing"
)

func TestMakeContact(t *testing.T) {
	person := Person{
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		CustomFields: map[string]string{
			"Phone": "5551234567",
		},
		PostalAddresses: []PostalAddress{
			{Primary: false, PostalCode: "60601"},
			{Primary: true, PostalCode: "94110"},
		},
	}

	contact, err := MakeContact(person, "campaign-1", ZipPrefixTimezone{})
	if err != nil {
		t.Fatalf("MakeContact() failed: %v", err)
	}

	if contact.FirstName != "Ada" {
		t.Errorf("FirstName = %q, want %q", contact.FirstName, "Ada")
	}
	if contact.LastName != "Lovelace" {
		t.Errorf("LastName = %q, want %q", contact.LastName, "Lovelace")
	}
	if contact.Cell != "+15551234567" {
		t.Errorf("Cell = %q, want %q", contact.Cell, "+15551234567")
	}
	if contact.Zip != "94110" {
		t.Errorf("Zip = %q, want primary address %q", contact.Zip, "94110")
	}
	if contact.TimezoneOffset != "-8_1" {
		t.Errorf("TimezoneOffset = %q, want %q", contact.TimezoneOffset, "-8_1")
	}
	if contact.MessageStatus != MessageStatusInitial {
		t.Errorf("MessageStatus = %q, want %q", contact.MessageStatus, MessageStatusInitial)
	}
	if contact.CampaignID != "campaign-1" {
		t.Errorf("CampaignID = %q, want %q", contact.CampaignID, "campaign-1")
	}
}

func TestMakeContact_MissingPhone(t *testing.T) {
	person := Person{
		GivenName:    "Ada",
		FamilyName:   "Lovelace",
		CustomFields: map[string]string{"Employer": "Analytical Engines"},
	}

	_, err := MakeContact(person, "campaign-1", ZipPrefixTimezone{})

	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("Expected *MissingFieldError, got %v", err)
	}
	if mfe.Field != PhoneField {
		t.Errorf("Field = %q, want %q", mfe.Field, PhoneField)
	}
	if mfe.Error() != "contact missing Phone field" {
		t.Errorf("Error() = %q, want %q", mfe.Error(), "contact missing Phone field")
	}
}

func TestMakeContact_NilCustomFields(t *testing.T) {
	_, err := MakeContact(Person{GivenName: "Ada"}, "campaign-1", ZipPrefixTimezone{})

	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("Expected *MissingFieldError, got %v", err)
	}
}

func TestMakeContact_NoPrimaryAddressFallsBack(t *testing.T) {
	person := Person{
		CustomFields: map[string]string{"Phone": "5551234567"},
		PostalAddresses: []PostalAddress{
			{Primary: false, PostalCode: "60601"},
		},
	}

	contact, err := MakeContact(person, "campaign-1", ZipPrefixTimezone{})
	if err != nil {
		t.Fatalf("MakeContact() failed: %v", err)
	}
	if contact.Zip != FallbackPostalCode {
		t.Errorf("Zip = %q, want fallback %q", contact.Zip, FallbackPostalCode)
	}
	if contact.TimezoneOffset != "-5_1" {
		t.Errorf("TimezoneOffset = %q, want %q", contact.TimezoneOffset, "-5_1")
	}
}

func TestMakeContact_PhoneNotValidated(t *testing.T) {
	person := Person{
		CustomFields: map[string]string{"Phone": "(555) 123-4567"},
	}

	contact, err := MakeContact(person, "campaign-1", ZipPrefixTimezone{})
	if err != nil {
		t.Fatalf("MakeContact() failed: %v", err)
	}

	// The raw value is passed through untouched, prefix included.
	if contact.Cell != "+1(555) 123-4567" {
		t.Errorf("Cell = %q, want raw value with prefix", contact.Cell)
	}
}

func TestZipPrefixTimezone(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"02118", "-5_1"},
		{"30301", "-5_1"},
		{"60601", "-6_1"},
		{"73301", "-6_1"},
		{"80202", "-7_1"},
		{"94110", "-8_1"},
		{"", "-5_1"},
		{"X1234", "-5_1"},
	}

	tz := ZipPrefixTimezone{}
	for _, tt := range tests {
		if got := tz.TimezoneForPostalCode(tt.code); got != tt.expected {
			t.Errorf("TimezoneForPostalCode(%q) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}
