package contact

import (
	"net/url"
	"regexp"
	"strings"

	"jobleads/pkg/models"
)

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,24}`)
	validEmail     = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,24}$`)
	labeledEmail   = regexp.MustCompile(`(?i)e-?mail(?:adresse)?\s*[:.]?\s*([A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,24})`)
	mailtoPattern  = regexp.MustCompile(`(?i)mailto:([^"'?\s<>]+)`)
	obfuscatedMail = regexp.MustCompile(`(?i)([A-Za-z0-9._%+\-]+)\s*[\[(]\s*(?:at|ät)\s*[\])]\s*([A-Za-z0-9\-]+(?:\s*[\[(]\s*(?:dot|punkt)\s*[\])]\s*[A-Za-z0-9\-]+)+)`)
	obfuscatedDot  = regexp.MustCompile(`(?i)\s*[\[(]\s*(?:dot|punkt)\s*[\])]\s*`)

	assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js", ".woff", ".woff2"}
)

// emailFilter rejects asset names and addresses on ignored domains
type emailFilter struct {
	ignoredDomains []string
}

// accept returns the lower-cased address, or false when it must be dropped
func (f emailFilter) accept(candidate string) (string, bool) {
	email := strings.ToLower(strings.Trim(strings.TrimSpace(candidate), ".,;:"))
	if !validEmail.MatchString(email) {
		return "", false
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(email, suffix) {
			return "", false
		}
	}
	if strings.Contains(email, "@2x") || strings.Contains(email, "@3x") {
		return "", false
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	for _, ignored := range f.ignoredDomains {
		ignored = strings.ToLower(ignored)
		if domain == ignored || strings.HasSuffix(domain, "."+ignored) {
			return "", false
		}
	}
	return email, true
}

// IsValidEmail reports whether s is a syntactically valid address
func IsValidEmail(s string) bool {
	return validEmail.MatchString(strings.TrimSpace(s))
}

func (f emailFilter) contact(candidate string, confidence models.ContactConfidence, source string) (models.Contact, bool) {
	email, ok := f.accept(candidate)
	if !ok {
		return models.Contact{}, false
	}
	return models.NewEmailContact(email, confidence, source), true
}

// findEmails returns email contacts in normalized visible text
func (f emailFilter) findEmails(text string) []models.Contact {
	var out []models.Contact

	for _, m := range labeledEmail.FindAllStringSubmatch(text, -1) {
		if c, ok := f.contact(m[1], models.ContactConfidenceHigh, models.SourceLabeledText); ok {
			out = append(out, c)
		}
	}
	for _, m := range obfuscatedMail.FindAllStringSubmatch(text, -1) {
		candidate := m[1] + "@" + obfuscatedDot.ReplaceAllString(m[2], ".")
		if c, ok := f.contact(candidate, models.ContactConfidenceMedium, models.SourcePageText); ok {
			out = append(out, c)
		}
	}
	for _, m := range emailPattern.FindAllString(text, -1) {
		if c, ok := f.contact(m, models.ContactConfidenceMedium, models.SourcePageText); ok {
			out = append(out, c)
		}
	}
	return out
}

// emailFromHref handles mailto: links
func (f emailFilter) emailFromHref(href string) (models.Contact, bool) {
	m := mailtoPattern.FindStringSubmatch(href)
	if m == nil {
		return models.Contact{}, false
	}
	return f.contact(unescape(m[1]), models.ContactConfidenceHigh, models.SourceMailtoLink)
}

func unescape(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}
