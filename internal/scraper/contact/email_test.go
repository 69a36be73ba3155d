package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobleads/pkg/models"
)

func TestEmailFilterAccept(t *testing.T) {
	f := emailFilter{ignoredDomains: []string{"arbeitsagentur.de", "example.com"}}

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"Bewerbung@Firma.de", "bewerbung@firma.de", true},
		{" jobs@firma-gmbh.co.uk.", "jobs@firma-gmbh.co.uk", true},
		{"info@arbeitsagentur.de", "", false},
		{"noreply@mail.arbeitsagentur.de", "", false},
		{"test@example.com", "", false},
		{"logo@2x.png", "", false},
		{"icon@sprite.svg", "", false},
		{"not-an-email", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := f.accept(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindEmails(t *testing.T) {
	f := emailFilter{}

	text := NormalizeText("E\u2011Mail: personal@firma.de\nOder schreiben Sie an karriere [at] firma [dot] de\nweitere: info@firma.de")
	emails := Dedupe(f.findEmails(text))

	byValue := make(map[string]models.Contact)
	for _, c := range emails {
		byValue[c.Value] = c
	}

	assert.Len(t, byValue, 3)
	assert.Equal(t, models.ContactConfidenceHigh, byValue["personal@firma.de"].Confidence)
	assert.Equal(t, models.SourceLabeledText, byValue["personal@firma.de"].Source)
	assert.Equal(t, models.ContactConfidenceMedium, byValue["karriere@firma.de"].Confidence)
	assert.Equal(t, models.ContactConfidenceMedium, byValue["info@firma.de"].Confidence)
}

func TestEmailFromHref(t *testing.T) {
	f := emailFilter{}

	c, ok := f.emailFromHref("mailto:Jobs%40Firma.de?subject=Bewerbung")
	assert.True(t, ok)
	assert.Equal(t, "jobs@firma.de", c.Value)
	assert.Equal(t, models.SourceMailtoLink, c.Source)
	assert.Equal(t, models.ContactConfidenceHigh, c.Confidence)

	_, ok = f.emailFromHref("https://firma.de")
	assert.False(t, ok)
}
