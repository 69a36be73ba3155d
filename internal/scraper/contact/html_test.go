package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/config"
	"jobleads/pkg/models"
)

const detailURL = "https://www.arbeitsagentur.de/jobsuche/jobdetail/10000-1234567890-S"

func newTestExtractor() *Extractor {
	return NewExtractor(config.Default().Extraction)
}

func byType(contacts []models.Contact, typ models.ContactType) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractHTMLContactBlock(t *testing.T) {
	html := `<html><head><script>var x = "tracking@analytics.io";</script></head><body>
<div id="detail-bewerbung-adresse">
  <p>Ansprechpartner: Frau M&uuml;ller</p>
  <p>Telefon:&nbsp;+49&nbsp;30&nbsp;1234567</p>
  <p><a href="mailto:jobs@firma.de">jobs@firma.de</a></p>
  <p>Referenznummer: 1234567890-1</p>
  <span data-email="hr@firma.de"></span>
  <p>Fragen an info@arbeitsagentur.de</p>
</div>
</body></html>`

	contacts := newTestExtractor().ExtractHTML(html, detailURL)

	emails := byType(contacts, models.ContactTypeEmail)
	require.Len(t, emails, 2)
	assert.Equal(t, "jobs@firma.de", emails[0].Value)
	assert.Equal(t, models.SourceMailtoLink, emails[0].Source)
	assert.Equal(t, models.ContactConfidenceHigh, emails[0].Confidence)
	assert.Equal(t, "hr@firma.de", emails[1].Value)
	assert.Equal(t, models.SourceAttribute, emails[1].Source)

	phones := byType(contacts, models.ContactTypePhone)
	require.Len(t, phones, 1)
	assert.Equal(t, "+49 30 1234567", phones[0].Value)
	assert.Equal(t, models.ContactConfidenceHigh, phones[0].Confidence)

	assert.Empty(t, byType(contacts, models.ContactTypeExternalLink))
}

func TestExtractHTMLPartnerLink(t *testing.T) {
	html := `<html><body>
<p>Diese Stelle wird auf der Seite unseres Kooperationspartners angeboten:
  <a href="https://partner.example.org/jobs/42">Zur Stellenanzeige</a></p>
<a href="/jobsuche/suche">Weitere Stellen</a>
<a href="https://www.facebook.com/arbeitsagentur">Facebook</a>
</body></html>`

	contacts := newTestExtractor().ExtractHTML(html, detailURL)

	require.Len(t, contacts, 1)
	assert.Equal(t, models.ContactTypeExternalLink, contacts[0].Type)
	assert.Equal(t, "https://partner.example.org/jobs/42", contacts[0].Value)
	assert.Equal(t, models.ContactConfidenceMedium, contacts[0].Confidence)
}

func TestExtractHTMLEmpty(t *testing.T) {
	assert.Empty(t, newTestExtractor().ExtractHTML("", detailURL))
	assert.Empty(t, newTestExtractor().ExtractHTML("<html><body><p>Keine Kontaktdaten</p></body></html>", detailURL))
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		href, base, want string
		ok               bool
	}{
		{"https://partner.de/a", detailURL, "https://partner.de/a", true},
		{"//partner.de/a", detailURL, "https://partner.de/a", true},
		{"/jobsuche/x", detailURL, "", false},
		{"javascript:void(0)", detailURL, "", false},
		{"https://partner.de/a", "", "https://partner.de/a", true},
		{"", detailURL, "", false},
	}

	for _, tt := range tests {
		got, ok := resolveLink(tt.href, tt.base)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}
}

func TestDedupeKeepsHighestConfidence(t *testing.T) {
	contacts := Dedupe([]models.Contact{
		models.NewPhoneContact("030 1234567", models.ContactConfidenceMedium, models.SourcePageText),
		models.NewEmailContact("a@firma.de", models.ContactConfidenceMedium, models.SourcePageText),
		models.NewPhoneContact("030-1234567", models.ContactConfidenceHigh, models.SourceTelLink),
		models.NewEmailContact("A@Firma.de", models.ContactConfidenceHigh, models.SourceMailtoLink),
	})

	require.Len(t, contacts, 2)
	assert.Equal(t, "030 1234567", contacts[0].Value)
	assert.Equal(t, models.ContactConfidenceHigh, contacts[0].Confidence)
	assert.Equal(t, models.SourceTelLink, contacts[0].Source)
	assert.Equal(t, models.ContactConfidenceHigh, contacts[1].Confidence)
}

func TestExtractHTMLNeverMergesNumbers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want map[string]models.ContactConfidence
	}{
		{
			name: "two numbers",
			html: `<p>Telefon: +49 30 1234567 / 030 7654321</p>`,
			want: map[string]models.ContactConfidence{
				"+49 30 1234567": models.ContactConfidenceHigh,
				"030 7654321":    models.ContactConfidenceMedium,
			},
		},
		{
			name: "number followed by year",
			html: `<p>Tel. 030 1234567 2024</p>`,
			want: map[string]models.ContactConfidence{
				"030 1234567": models.ContactConfidenceMedium,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phones := byType(newTestExtractor().ExtractHTML(tt.html, detailURL), models.ContactTypePhone)

			got := make(map[string]models.ContactConfidence, len(phones))
			for _, p := range phones {
				got[p.Value] = p.Confidence
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
