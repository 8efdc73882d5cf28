package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocumentType
	}{
		{"landlord confirmation", "WOHNUNGSGEBERBESTÄTIGUNG\nnach § 19 BMG", DocLandlordConfirmation},
		{"address form", "Anmeldung bei der Meldebehörde", DocAddressForm},
		{"unknown", "Rechnung Nr. 4711", DocUnknown},
		{"empty", "", DocUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeywordClassifier{}.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordParser(t *testing.T) {
	text := `Anmeldung
Name: Max Mustermann
Geburtsdatum: 1990-05-01
E-Mail: max@example.com
Alte Adresse: Alte Str. 1, 10115 Berlin
Neue Adresse: Musterstr 12a, 67264 KL
Einzugsdatum: 2025-03-01
Wohnungsgeber: Vermieter GmbH
Unbekanntes Feld: wird ignoriert`

	data, err := KeywordParser{}.Parse(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "Max Mustermann", data.Name)
	assert.Equal(t, "1990-05-01", data.DOB)
	assert.Equal(t, "max@example.com", data.Email)
	assert.Equal(t, "Alte Str. 1, 10115 Berlin", data.OldAddress)
	assert.Equal(t, "Musterstr 12a, 67264 KL", data.NewAddress)
	assert.Equal(t, "2025-03-01", data.MoveInDate)
	assert.Equal(t, "Vermieter GmbH", data.LandlordName)
}
