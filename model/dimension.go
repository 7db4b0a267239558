package model

import "time"

// DimensionType names one of the versioned reference dimensions.
type DimensionType string

const (
	DimInstitution DimensionType = "institution"
	DimAccount     DimensionType = "account"
	DimCategory    DimensionType = "category"
)

// DimensionRecord is one SCD Type 2 version of a dimension row. For a given
// (Type, NaturalKey) exactly one record is current at any instant; that
// record's ValidTo is nil, and every closed version's ValidTo equals the
// ValidFrom of its immediate successor.
type DimensionRecord struct {
	SurrogateID string            `json:"surrogate_id"`
	Type        DimensionType     `json:"type"`
	NaturalKey  string            `json:"natural_key"`
	Attributes  map[string]string `json:"attributes"`
	ValidFrom   time.Time         `json:"valid_from"`
	ValidTo     *time.Time        `json:"valid_to,omitempty"`
	IsCurrent   bool              `json:"is_current"`
}

// AttributesEqual reports whether the tracked attributes of the record match
// the given set. A nil map compares equal to an empty one.
func (d *DimensionRecord) AttributesEqual(attrs map[string]string) bool {
	if len(d.Attributes) != len(attrs) {
		return false
	}
	for k, v := range attrs {
		if d.Attributes[k] != v {
			return false
		}
	}
	return true
}
