package models

import (
	"fmt"
	"strings"
)

// WardNum is the number of a Chicago ward, valid from MinWard to MaxWard inclusive.
type WardNum int

// Ward number bounds.
const (
	MinWard WardNum = 1
	MaxWard WardNum = 50
)

// minStreetLineLength filters out placeholder street lines such as "none" or "n/a".
const minStreetLineLength = 6

// Valid reports whether the ward number lies within the city's ward range.
func (w WardNum) Valid() bool {
	return w >= MinWard && w <= MaxWard
}

// Member is a person record from the remote service, reduced to the fields
// that matter for ward resolution.
type Member struct {
	ID              string   // ID is the remote service identifier of the person.
	AddressLines    []string // AddressLines are the street lines of the primary postal address.
	City            string   // City is the locality of the primary postal address.
	State           string   // State is the region of the primary postal address.
	Zipcode         *int     // Zipcode is the 5 digit postal code, nil when absent or unusable.
	CustomFieldWard *WardNum // CustomFieldWard is the self-reported ward, nil when absent or out of range.
}

// HasStreetAddress reports whether the member has a street line long enough to be worth geocoding.
func (m Member) HasStreetAddress() bool {
	if len(m.AddressLines) == 0 {
		return false
	}

	return len(strings.TrimSpace(m.AddressLines[0])) > minStreetLineLength
}

// FullAddress joins the address lines, city and state with commas and appends the zip code.
// The second value is false when the member has no address parts at all.
func (m Member) FullAddress() (string, bool) {
	parts := make([]string, 0, len(m.AddressLines)+2)
	parts = append(parts, m.AddressLines...)
	if m.City != "" {
		parts = append(parts, m.City)
	}
	if m.State != "" {
		parts = append(parts, m.State)
	}

	address := strings.Join(parts, ", ")
	if m.Zipcode != nil {
		address += fmt.Sprintf(" %05d", *m.Zipcode)
	}
	address = strings.TrimSpace(address)

	return address, address != ""
}
