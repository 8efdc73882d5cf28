// Package domain holds identifier types shared across features.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CaseID is the externally visible identifier of an address-change case.
// The display format is "Case ID: N" where N is the sequence number assigned
// by the case store. The format is a legacy contract with the review frontend
// and the audit trail, so it is kept verbatim.
type CaseID string

// NewCaseID formats a sequence number into the display form.
func NewCaseID(seq int64) CaseID {
	return CaseID(fmt.Sprintf("Case ID: %d", seq))
}

// NormalizeCaseID accepts the sloppy identifier variants seen in practice
// ("7", "case id 7", "Case ID: 7") and returns the canonical display form.
// Unrecognized input is returned trimmed but otherwise untouched so the store
// lookup can fail with a proper not-found.
func NormalizeCaseID(raw string) CaseID {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "Case ID:") {
		return CaseID(s)
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CaseID("Case ID: " + s)
	}
	if strings.HasPrefix(strings.ToLower(s), "case id") {
		fields := strings.Fields(s)
		if len(fields) >= 3 {
			return CaseID("Case ID: " + fields[len(fields)-1])
		}
	}
	return CaseID(s)
}

func (c CaseID) String() string { return string(c) }

// IsZero reports whether the identifier is unset.
func (c CaseID) IsZero() bool { return c == "" }

// Seq extracts the numeric sequence component, or 0 if the identifier does
// not carry one.
func (c CaseID) Seq() int64 {
	s := strings.TrimSpace(strings.TrimPrefix(string(c), "Case ID:"))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FileSafe returns the identifier with spaces replaced, suitable for use in
// artifact filenames ("Case_ID:_7").
func (c CaseID) FileSafe() string {
	return strings.ReplaceAll(string(c), " ", "_")
}

// ResolutionID identifies one learned pattern row.
type ResolutionID int64

func (r ResolutionID) Int64() int64 { return int64(r) }
