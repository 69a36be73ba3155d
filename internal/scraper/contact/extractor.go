// Package contact turns job detail pages into email, phone and external
// application link contacts and decides which of them a result carries.
package contact

import (
	"net/url"
	"strings"

	"jobleads/internal/config"
	"jobleads/pkg/models"
)

// Extractor finds contacts in page markup or in a live page's DOM
type Extractor struct {
	sections []string
	markers  []string
	filter   emailFilter
}

// NewExtractor creates an extractor from the extraction config
func NewExtractor(cfg config.ExtractionConfig) *Extractor {
	return &Extractor{
		sections: cfg.ContactSectionSelectors,
		markers:  cfg.ExternalLinkMarkers,
		filter:   emailFilter{ignoredDomains: cfg.IgnoredEmailDomains},
	}
}

// Link is an anchor with enough context to decide if it is an external
// application link
type Link struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Title   string `json:"title"`
	Context string `json:"context"`
}

// fromHref handles mailto: and tel: hrefs
func (e *Extractor) fromHref(href string) (models.Contact, bool) {
	href = strings.TrimSpace(href)
	if c, ok := e.filter.emailFromHref(href); ok {
		return c, true
	}
	return phoneFromHref(href)
}

// fromText scans normalized visible text for emails and phones
func (e *Extractor) fromText(text string) []models.Contact {
	text = NormalizeText(text)
	contacts := e.filter.findEmails(text)
	return append(contacts, findPhones(text)...)
}

// externalLink returns an external_link contact when the anchor mentions one
// of the partner markers and points off-site.
func (e *Extractor) externalLink(l Link, sourceURL string) (models.Contact, bool) {
	haystack := strings.ToLower(NormalizeText(l.Text + " " + l.Title + " " + l.Context))
	marked := false
	for _, marker := range e.markers {
		if marker != "" && strings.Contains(haystack, strings.ToLower(marker)) {
			marked = true
			break
		}
	}
	if !marked {
		return models.Contact{}, false
	}

	target, ok := resolveLink(l.Href, sourceURL)
	if !ok {
		return models.Contact{}, false
	}
	return models.NewExternalLinkContact(target, models.SourceExternalApply), true
}

// resolveLink makes href absolute against base and keeps only http(s) links
// to another host.
func resolveLink(href, base string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || href == "" {
		return "", false
	}

	var baseURL *url.URL
	if base != "" {
		if baseURL, err = url.Parse(base); err == nil {
			ref = baseURL.ResolveReference(ref)
		}
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return "", false
	}
	if baseURL != nil && strings.EqualFold(baseURL.Hostname(), ref.Hostname()) {
		return "", false
	}
	return ref.String(), true
}

// Dedupe merges contacts with the same normalized value, keeping the first
// occurrence and the highest confidence seen for it.
func Dedupe(contacts []models.Contact) []models.Contact {
	out := make([]models.Contact, 0, len(contacts))
	index := make(map[string]int, len(contacts))

	for _, c := range contacts {
		key := c.Key()
		if i, ok := index[key]; ok {
			if c.Confidence.Rank() > out[i].Confidence.Rank() {
				out[i].Confidence = c.Confidence
				out[i].Source = c.Source
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}
