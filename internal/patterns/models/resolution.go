// Package models holds the learned-correction types shared by the pattern
// store and the quality assessor.
package models

import (
	"time"

	id "meldeamt/pkg/domain"
)

// ResolutionType categorizes how a learned pattern came to be.
type ResolutionType string

const (
	TypeCityAbbreviation   ResolutionType = "city_abbreviation"
	TypeStreetAbbreviation ResolutionType = "street_abbreviation"
	TypeNumberCorrection   ResolutionType = "number_correction"
	TypeWordCorrection     ResolutionType = "word_correction"
)

// Resolution is one token-level correction learned from a human's address
// fix. (Pattern, Type) is unique; recurring diffs increment Frequency and
// overwrite Corrected instead of inserting a new row.
type Resolution struct {
	ID         id.ResolutionID `json:"id"`
	Pattern    string          `json:"original_pattern"`
	Corrected  string          `json:"corrected_value"`
	Type       ResolutionType  `json:"resolution_type"`
	Frequency  int             `json:"frequency"`
	LastUsedAt time.Time       `json:"last_used_at"`
}

// Applied records one substitution actually made while correcting an address.
type Applied struct {
	Original  string         `json:"original"`
	Corrected string         `json:"corrected"`
	Type      ResolutionType `json:"type"`
}

// Candidate is a learnable pattern extracted from the diff between an
// original and a human-corrected address, before it is stored.
type Candidate struct {
	Pattern   string
	Corrected string
	Type      ResolutionType
}
