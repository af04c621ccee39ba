package contacts

// ZipPrefixTimezone derives a coarse UTC offset from the first digit
// of a US postal code. The offset string is "<hours>_<observesDST>",
// the format the host contact table expects. Precision only matters
// for texting-hours windows, so a prefix bucket is enough.
type ZipPrefixTimezone struct{}

// TimezoneForPostalCode implements TimezoneLookup.
func (ZipPrefixTimezone) TimezoneForPostalCode(code string) string {
	if code == "" {
		return "-5_1"
	}
	switch code[0] {
	case '0', '1', '2', '3':
		// Eastern
		return "-5_1"
	case '4', '5', '6', '7':
		// Central
		return "-6_1"
	case '8':
		// Mountain
		return "-7_1"
	case '9':
		// Pacific
		return "-8_1"
	default:
		return "-5_1"
	}
}
