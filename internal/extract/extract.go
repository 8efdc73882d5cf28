// Package extract turns raw document text from uploaded PDFs into structured
// citizen data. Classification and parsing are ports; production wires the
// OpenAI adapter, tests and offline deployments use the keyword fallback.
package extract

import "context"

// DocumentType is the recognized kind of an uploaded document.
type DocumentType string

const (
	DocLandlordConfirmation DocumentType = "landlord_confirmation"
	DocAddressForm          DocumentType = "address_form"
	DocUnknown              DocumentType = "unknown"
)

// CitizenData is the structured payload extracted from an address-change
// form. Raw strings throughout; validation happens in the pipeline.
type CitizenData struct {
	Name         string `json:"name"`
	DOB          string `json:"dob"`
	Email        string `json:"email"`
	OldAddress   string `json:"old_address"`
	NewAddress   string `json:"new_address"`
	MoveInDate   string `json:"move_in_date"`
	LandlordName string `json:"landlord_name"`
}

// Classifier decides what kind of document a text belongs to.
type Classifier interface {
	Classify(ctx context.Context, text string) (DocumentType, error)
}

// Parser extracts citizen data from an address-change form text.
type Parser interface {
	Parse(ctx context.Context, text string) (*CitizenData, error)
}
