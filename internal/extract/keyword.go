package extract

import (
	"context"
	"strings"
)

// KeywordClassifier recognizes document types by their German form headers.
// It is the zero-dependency fallback when no OpenAI key is configured.
type KeywordClassifier struct{}

var landlordMarkers = []string{
	"wohnungsgeberbestätigung", "wohnungsgeberbescheinigung", "vermieterbescheinigung",
}

var addressFormMarkers = []string{
	"anmeldung", "ummeldung", "adressänderung", "wohnsitz",
}

func (KeywordClassifier) Classify(ctx context.Context, text string) (DocumentType, error) {
	lower := strings.ToLower(text)
	for _, marker := range landlordMarkers {
		if strings.Contains(lower, marker) {
			return DocLandlordConfirmation, nil
		}
	}
	for _, marker := range addressFormMarkers {
		if strings.Contains(lower, marker) {
			return DocAddressForm, nil
		}
	}
	return DocUnknown, nil
}

// KeywordParser pulls labeled fields out of form text, one "Label: value"
// pair per line.
type KeywordParser struct{}

var fieldLabels = map[string]func(*CitizenData, string){
	"name":          func(d *CitizenData, v string) { d.Name = v },
	"geburtsdatum":  func(d *CitizenData, v string) { d.DOB = v },
	"e-mail":        func(d *CitizenData, v string) { d.Email = v },
	"email":         func(d *CitizenData, v string) { d.Email = v },
	"alte adresse":  func(d *CitizenData, v string) { d.OldAddress = v },
	"neue adresse":  func(d *CitizenData, v string) { d.NewAddress = v },
	"einzugsdatum":  func(d *CitizenData, v string) { d.MoveInDate = v },
	"wohnungsgeber": func(d *CitizenData, v string) { d.LandlordName = v },
	"vermieter":     func(d *CitizenData, v string) { d.LandlordName = v },
}

func (KeywordParser) Parse(ctx context.Context, text string) (*CitizenData, error) {
	data := &CitizenData{}
	for _, line := range strings.Split(text, "\n") {
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		set, ok := fieldLabels[strings.ToLower(strings.TrimSpace(label))]
		if !ok {
			continue
		}
		set(data, strings.TrimSpace(value))
	}
	return data, nil
}
