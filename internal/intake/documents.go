package intake

import (
	"context"
	"fmt"
	"log/slog"

	casemodels "meldeamt/internal/caserec/models"
	"meldeamt/internal/extract"
	dErrors "meldeamt/pkg/domain-errors"
)

// Document is one uploaded file with its extracted text. OCR happens
// upstream; intake only sees the text.
type Document struct {
	Filename string
	Text     string
}

// DocumentIntake builds a case from uploaded documents: each document is
// classified, the address form is parsed into citizen data, and the result
// goes through the regular submission path.
type DocumentIntake struct {
	svc        *Service
	classifier extract.Classifier
	parser     extract.Parser
	logger     *slog.Logger
}

func NewDocumentIntake(svc *Service, classifier extract.Classifier, parser extract.Parser, logger *slog.Logger) *DocumentIntake {
	return &DocumentIntake{svc: svc, classifier: classifier, parser: parser, logger: logger}
}

// Submit classifies the uploaded documents and creates a case from the
// address form. Exactly one address form is required; a landlord confirmation
// is optional and only recorded on the case.
func (d *DocumentIntake) Submit(ctx context.Context, docs []Document) (*casemodels.Case, error) {
	if len(docs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no documents uploaded")
	}

	var addressForm, landlordDoc *Document
	for i := range docs {
		doc := &docs[i]
		docType, err := d.classifier.Classify(ctx, doc.Text)
		if err != nil {
			return nil, fmt.Errorf("classify document %s: %w", doc.Filename, err)
		}
		switch docType {
		case extract.DocAddressForm:
			if addressForm != nil {
				return nil, dErrors.New(dErrors.CodeValidation, "more than one address form uploaded")
			}
			addressForm = doc
		case extract.DocLandlordConfirmation:
			landlordDoc = doc
		default:
			d.logger.WarnContext(ctx, "unrecognized document ignored",
				slog.String("filename", doc.Filename))
		}
	}
	if addressForm == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "no address form among the uploaded documents")
	}

	data, err := d.parser.Parse(ctx, addressForm.Text)
	if err != nil {
		return nil, fmt.Errorf("parse address form %s: %w", addressForm.Filename, err)
	}

	sub := Submission{
		CitizenName:  data.Name,
		DOB:          data.DOB,
		Email:        data.Email,
		OldAddress:   data.OldAddress,
		NewAddress:   data.NewAddress,
		MoveInDate:   data.MoveInDate,
		LandlordName: data.LandlordName,
		PDFAddress:   addressForm.Filename,
	}
	if landlordDoc != nil {
		sub.PDFLandlord = landlordDoc.Filename
		if sub.LandlordName == "" {
			confirmation, err := d.parser.Parse(ctx, landlordDoc.Text)
			if err != nil {
				return nil, fmt.Errorf("parse landlord confirmation %s: %w", landlordDoc.Filename, err)
			}
			sub.LandlordName = confirmation.LandlordName
		}
	}
	return d.svc.Submit(ctx, sub)
}
