package contact

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobleads/pkg/models"
)

const maxContextLength = 400

// ExtractHTML finds contacts in raw page markup. It reads mailto: and tel:
// anchors, labeled and free-text emails and phones in the visible text,
// addresses embedded in attributes, and partner-site application links.
func (e *Extractor) ExtractHTML(html, sourceURL string) []models.Contact {
	if strings.TrimSpace(html) == "" {
		return []models.Contact{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// unparseable markup still gets the plain-text pass
		return Dedupe(e.fromText(html))
	}
	doc.Find("script, style, noscript, template").Remove()

	var contacts []models.Contact
	var links []Link

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if c, ok := e.fromHref(href); ok {
			contacts = append(contacts, c)
			return
		}
		title, _ := s.Attr("title")
		if title == "" {
			title, _ = s.Attr("aria-label")
		}
		links = append(links, Link{
			Href:    href,
			Text:    s.Text(),
			Title:   title,
			Context: anchorContext(s.Parent()),
		})
	})

	var text strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		text.WriteString(blockText(s))
	})
	if text.Len() == 0 {
		text.WriteString(doc.Text())
	}
	contacts = append(contacts, e.fromText(text.String())...)

	// addresses hidden in attributes such as data-email or content
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range s.Nodes[0].Attr {
			if attr.Key == "href" || !strings.Contains(attr.Val, "@") {
				continue
			}
			for _, m := range emailPattern.FindAllString(attr.Val, -1) {
				if c, ok := e.filter.contact(m, models.ContactConfidenceMedium, models.SourceAttribute); ok {
					contacts = append(contacts, c)
				}
			}
		}
	})

	for _, l := range links {
		if c, ok := e.externalLink(l, sourceURL); ok {
			contacts = append(contacts, c)
		}
	}

	return Dedupe(contacts)
}

// blockText renders a selection's text with line breaks between block
// elements so labels stay next to their values.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			b.WriteString(child.Text())
			return
		}
		switch goquery.NodeName(child) {
		case "br", "p", "div", "li", "tr", "dd", "dt", "h1", "h2", "h3", "h4", "section", "address":
			b.WriteString("\n")
			b.WriteString(blockText(child))
			b.WriteString("\n")
		default:
			b.WriteString(blockText(child))
		}
	})
	return b.String()
}

// anchorContext returns the text around an anchor when its parent is a small
// block; page-level containers carry no context.
func anchorContext(parent *goquery.Selection) string {
	switch goquery.NodeName(parent) {
	case "body", "html", "main", "":
		return ""
	}
	text := strings.TrimSpace(parent.Text())
	if len(text) > maxContextLength {
		return ""
	}
	return text
}
