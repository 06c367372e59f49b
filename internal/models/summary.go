package models

import (
	"encoding/json"
	"fmt"
)

// TaggingsSummary accumulates the outcome of a tagging run.
// Every member that reaches resolution is counted exactly once in one of the
// tagged-from counters or in MembersNotTagged.
type TaggingsSummary struct {
	TaggingsDeleted          int `json:"taggings deleted"`
	TaggingsAdded            int `json:"taggings added"`
	MembersModified          int `json:"members modified"`
	MembersTaggedFromField   int `json:"members tagged from field"`
	MembersTaggedFromAddress int `json:"members tagged from address"`
	MembersTaggedFromZipcode int `json:"members tagged from zipcode"`
	MembersNotTagged         int `json:"members not tagged"`
	Errors                   int `json:"errors"`
}

// Record adds the outcome of one member's resolution and reconciliation.
func (s *TaggingsSummary) Record(res Resolution, removed, added int) {
	s.TaggingsDeleted += removed
	s.TaggingsAdded += added

	switch res.Strategy {
	case StrategyField:
		s.MembersTaggedFromField++
	case StrategyAddress:
		s.MembersTaggedFromAddress++
	case StrategyZipcode:
		s.MembersTaggedFromZipcode++
	case StrategyNone:
		s.MembersNotTagged++
		if removed > 0 {
			s.MembersModified++
		}
		return
	}

	s.MembersModified++
}

// RecordError counts an anomaly that did not stop the run.
func (s *TaggingsSummary) RecordError() {
	s.Errors++
}

// Add merges another summary into s.
func (s *TaggingsSummary) Add(other TaggingsSummary) {
	s.TaggingsDeleted += other.TaggingsDeleted
	s.TaggingsAdded += other.TaggingsAdded
	s.MembersModified += other.MembersModified
	s.MembersTaggedFromField += other.MembersTaggedFromField
	s.MembersTaggedFromAddress += other.MembersTaggedFromAddress
	s.MembersTaggedFromZipcode += other.MembersTaggedFromZipcode
	s.MembersNotTagged += other.MembersNotTagged
	s.Errors += other.Errors
}

// MembersConsidered is the number of members that went through resolution.
func (s TaggingsSummary) MembersConsidered() int {
	return s.MembersTaggedFromField + s.MembersTaggedFromAddress + s.MembersTaggedFromZipcode + s.MembersNotTagged
}

// ToJSON renders the summary as the fixed-key JSON object printed at the end of a run.
func (s TaggingsSummary) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal taggings summary: %w", err)
	}

	return string(data), nil
}
