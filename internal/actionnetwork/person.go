package actionnetwork

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/models"
)

const (
	identifierPrefix = "action_network:"
	// WardFieldName is the custom field where members report their ward.
	WardFieldName = "Aldermanic Ward"
	zipcodeLength = 5
)

// Errors describing why a person record could not be used.
var (
	ErrNoIdentifier     = errors.New("record has no action_network identifier")
	ErrMalformedRecord  = errors.New("record is not a valid person object")
	ErrInvalidWardField = errors.New("unexpected value for ward custom field")
)

// Person is a parsed person record.
type Person struct {
	Member     models.Member
	ModifiedAt time.Time // ModifiedAt is zero when the record carries no parseable date.
	// WardFieldErr is set when the ward custom field held a value that is not a number.
	// The member is still usable; the field is treated as absent.
	WardFieldErr error
}

type personRecord struct {
	Identifiers     []string        `json:"identifiers"`
	ModifiedDate    string          `json:"modified_date"`
	PostalAddresses []postalAddress `json:"postal_addresses"`
	CustomFields    map[string]any  `json:"custom_fields"`
}

type postalAddress struct {
	Primary      bool       `json:"primary"`
	AddressLines []string   `json:"address_lines"`
	Locality     string     `json:"locality"`
	Region       string     `json:"region"`
	PostalCode   flexString `json:"postal_code"`
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexString(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = flexString(number.String())

	return nil
}

// ParsePerson validates a raw person record and converts it into a Person.
// A record without an action_network identifier is rejected with ErrNoIdentifier.
func ParsePerson(raw json.RawMessage) (Person, error) {
	var record personRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return Person{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	id, ok := identifierFrom(record.Identifiers)
	if !ok {
		return Person{}, ErrNoIdentifier
	}

	person := Person{Member: models.Member{ID: id}}

	if record.ModifiedDate != "" {
		if modified, err := time.Parse(time.RFC3339, record.ModifiedDate); err == nil {
			person.ModifiedAt = modified
		}
	}

	if address, found := primaryAddress(record.PostalAddresses); found {
		person.Member.AddressLines = address.AddressLines
		person.Member.City = address.Locality
		person.Member.State = address.Region
		person.Member.Zipcode = ParseZipcode(string(address.PostalCode))
	}

	ward, err := parseWardField(record.CustomFields[WardFieldName])
	if err != nil {
		person.WardFieldErr = err
	} else {
		person.Member.CustomFieldWard = ward
	}

	return person, nil
}

// ParseZipcode truncates the postal code to 5 characters and returns it as a
// number, or nil when the result is not purely numeric.
func ParseZipcode(field string) *int {
	field = strings.TrimSpace(field)
	if len(field) > zipcodeLength {
		field = field[:zipcodeLength]
	}
	if field == "" {
		return nil
	}

	for _, r := range field {
		if r < '0' || r > '9' {
			return nil
		}
	}

	zipcode, err := strconv.Atoi(field)
	if err != nil {
		return nil
	}

	return &zipcode
}

func identifierFrom(identifiers []string) (string, bool) {
	for _, identifier := range identifiers {
		if id, ok := strings.CutPrefix(identifier, identifierPrefix); ok && id != "" {
			return id, true
		}
	}

	return "", false
}

func primaryAddress(addresses []postalAddress) (postalAddress, bool) {
	if len(addresses) == 0 {
		return postalAddress{}, false
	}
	for _, address := range addresses {
		if address.Primary {
			return address, true
		}
	}

	return addresses[0], true
}

// parseWardField returns nil for an absent or out of range ward and an error
// for a value that is not an integer.
func parseWardField(value any) (*models.WardNum, error) {
	var number int

	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWardField, v)
		}
		number = parsed
	case float64:
		if v != float64(int(v)) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWardField, v)
		}
		number = int(v)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidWardField, v)
	}

	ward := models.WardNum(number)
	if !ward.Valid() {
		return nil, nil
	}

	return &ward, nil
}
