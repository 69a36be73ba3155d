package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/scraper/browser/browsertest"
	"jobleads/pkg/models"
)

func TestExtractDOM(t *testing.T) {
	page := browsertest.NewPage(detailURL)
	page.OnEval(snapshotScript, func(args ...interface{}) (interface{}, error) {
		require.Len(t, args, 1)
		return map[string]interface{}{
			"url":  detailURL,
			"text": "Kontakt\nTel.: 0049 89 7654321\nE-Mail: bewerbung@firma.de",
			"links": []map[string]interface{}{
				{"href": "mailto:bewerbung@firma.de", "text": "bewerbung@firma.de"},
				{"href": "tel:+4989 7654321", "text": "anrufen"},
			},
		}, nil
	})

	contacts, err := newTestExtractor().ExtractDOM(context.Background(), page)
	require.NoError(t, err)

	require.Len(t, contacts, 2)
	assert.Equal(t, models.NewEmailContact("bewerbung@firma.de", models.ContactConfidenceHigh, models.SourceMailtoLink), contacts[0])
	assert.Equal(t, models.ContactTypePhone, contacts[1].Type)
	assert.Equal(t, models.SourceTelLink, contacts[1].Source)
	assert.Equal(t, models.ContactConfidenceHigh, contacts[1].Confidence)
}

func TestExtractDOMPartnerLinkUsesPageURL(t *testing.T) {
	page := browsertest.NewPage(detailURL)
	page.ReturnOnEval(snapshotScript, map[string]interface{}{
		"text": "Bewerben Sie sich beim Kooperationspartner",
		"links": []map[string]interface{}{
			{"href": "https://karriere.partner.de/stelle", "text": "Jetzt bewerben", "context": "Bewerben Sie sich beim Kooperationspartner"},
			{"href": "/jobsuche", "text": "Kooperationspartner"},
		},
	})

	contacts, err := newTestExtractor().ExtractDOM(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "https://karriere.partner.de/stelle", contacts[0].Value)
}

func TestExtractDOMEvalError(t *testing.T) {
	page := browsertest.NewPage(detailURL)
	page.OnEval(snapshotScript, func(...interface{}) (interface{}, error) {
		return nil, errors.New("execution context destroyed")
	})

	_, err := newTestExtractor().ExtractDOM(context.Background(), page)
	assert.Error(t, err)
}
