package contact

import (
	"context"
	"fmt"

	"jobleads/internal/scraper/browser"
	"jobleads/pkg/models"
)

// snapshotScript walks the contact sections (or the whole body) including
// open shadow roots and returns every anchor and text node it sees.
const snapshotScript = `(selectors) => {
	const roots = [];
	for (const sel of selectors || []) {
		try { document.querySelectorAll(sel).forEach((n) => roots.push(n)); } catch (e) {}
	}
	if (roots.length === 0 && document.body) roots.push(document.body);

	const seen = new Set();
	const texts = [];
	const links = [];
	const walk = (node) => {
		if (!node || seen.has(node)) return;
		seen.add(node);
		if (node.nodeType === 3) {
			const t = node.textContent;
			if (t && t.trim()) texts.push(t);
			return;
		}
		if (node.nodeType === 1) {
			const tag = node.tagName;
			if (tag === 'SCRIPT' || tag === 'STYLE' || tag === 'NOSCRIPT') return;
			if (tag === 'A' && node.getAttribute('href')) {
				const parent = node.parentElement;
				const around = parent && !['BODY', 'HTML', 'MAIN'].includes(parent.tagName) ? (parent.textContent || '').trim() : '';
				links.push({
					href: node.getAttribute('href'),
					text: (node.textContent || '').trim(),
					title: node.getAttribute('title') || node.getAttribute('aria-label') || '',
					context: around.length <= 400 ? around : '',
				});
			}
			for (const attr of ['data-email', 'data-mail', 'data-phone', 'content']) {
				const v = node.getAttribute(attr);
				if (v) texts.push(v);
			}
			if (node.shadowRoot) walk(node.shadowRoot);
		}
		for (const child of node.childNodes || []) walk(child);
	};
	roots.forEach(walk);
	return { url: location.href, text: texts.join('\n'), links: links };
}`

// Snapshot is what the DOM walk returns
type Snapshot struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Links []Link `json:"links"`
}

// ExtractDOM walks the live page, shadow roots included, and extracts
// contacts from the collected anchors and text.
func (e *Extractor) ExtractDOM(ctx context.Context, page browser.Page) ([]models.Contact, error) {
	res, err := page.Eval(ctx, snapshotScript, e.sections)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot contact section: %w", err)
	}

	var snap Snapshot
	if err := res.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode contact snapshot: %w", err)
	}
	if snap.URL == "" {
		snap.URL = page.URL()
	}
	return e.FromSnapshot(snap), nil
}

// FromSnapshot extracts contacts from an already collected DOM snapshot
func (e *Extractor) FromSnapshot(snap Snapshot) []models.Contact {
	var contacts []models.Contact
	var rest []Link

	for _, l := range snap.Links {
		if c, ok := e.fromHref(l.Href); ok {
			contacts = append(contacts, c)
			continue
		}
		rest = append(rest, l)
	}

	contacts = append(contacts, e.fromText(snap.Text)...)

	for _, l := range rest {
		if c, ok := e.externalLink(l, snap.URL); ok {
			contacts = append(contacts, c)
		}
	}
	return Dedupe(contacts)
}
