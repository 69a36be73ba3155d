package contact

import (
	"regexp"
	"strings"

	"jobleads/pkg/models"
)

var (
	// job identifiers such as 1234567890-1 show up next to phone labels
	jobIDShape = regexp.MustCompile(`^\d{10}-\d$`)
	// two or more short digit blocks: table cells, pagination, layout noise
	digitBlockNoise = regexp.MustCompile(`^\d{1,3}(?:\s+\d{1,3})+$`)

	// E.164 caps a number at 15 digits including the country code
	internationalPhone = regexp.MustCompile(`^\+49\d{7,13}$`)
	nationalPhone      = regexp.MustCompile(`^0[1-9]\d{5,12}$`)
	phoneAlphabet      = regexp.MustCompile(`^[+\d\s\-/().]+$`)
	trunkZero          = regexp.MustCompile(`\(\s*0\s*\)`)

	// candidates in free text; classification happens afterwards
	// candidates in free text; firstNumber cuts them and classification
	// happens afterwards
	internationalCandidate = regexp.MustCompile(`(?:\+|00)49(?:[ \-/().]*\d){7,}`)
	nationalCandidate      = regexp.MustCompile(`(?:^|[^\d+/.])(0\d{2,5}(?:[ \-/]*\d){3,})`)
	labeledPhone           = regexp.MustCompile(`(?i)(?:telefon(?:nummer)?|tel\.?|fon|mobil|handy|phone)\s*[:.]?\s*([+\d(][\d \t\-/().]{5,}\d)`)

	digitGroup = regexp.MustCompile(`\+?\d+`)
)

// IsGarbagePhone reports candidates that look like phone numbers but are
// job identifiers or whitespace-separated layout digits.
func IsGarbagePhone(candidate string) bool {
	s := collapseSpaces(NormalizeText(candidate))
	return jobIDShape.MatchString(s) || digitBlockNoise.MatchString(s)
}

// ClassifyPhone validates a phone candidate. It returns the display value
// (trimmed, spaces collapsed) and its confidence: +49 / 0049 numbers are high,
// national 0-prefixed numbers medium. ok is false for everything else.
func ClassifyPhone(candidate string) (value string, confidence models.ContactConfidence, ok bool) {
	value = strings.Trim(collapseSpaces(NormalizeText(candidate)), " -/.")
	if value == "" || IsGarbagePhone(value) || !phoneAlphabet.MatchString(value) {
		return "", "", false
	}

	digits := compactPhone(value)
	switch {
	case internationalPhone.MatchString(digits):
		return value, models.ContactConfidenceHigh, true
	case nationalPhone.MatchString(digits):
		return value, models.ContactConfidenceMedium, true
	default:
		return "", "", false
	}
}

// compactPhone strips separators and rewrites 0049 to +49
func compactPhone(value string) string {
	value = trunkZero.ReplaceAllString(value, "")

	var b strings.Builder
	for i, r := range value {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0049") {
		digits = "+49" + digits[4:]
	}
	return digits
}

// firstNumber cuts a free-text candidate where a second number begins. Groups
// joined by a dash, dot or parenthesis always belong together. A space or
// slash ends the number when the next group opens with a trunk 0, and a plain
// space ends it after a complete subscriber group.
func firstNumber(candidate string) string {
	groups := digitGroup.FindAllStringIndex(candidate, -1)
	for i := 1; i < len(groups); i++ {
		sep := candidate[groups[i-1][1]:groups[i][0]]
		if strings.Trim(sep, " \t/") != "" {
			continue
		}
		prev := strings.TrimPrefix(candidate[groups[i-1][0]:groups[i-1][1]], "+")
		next := candidate[groups[i][0]:groups[i][1]]
		countryCode := i == 1 && (prev == "49" || prev == "0049")

		newTrunk := strings.HasPrefix(next, "0") && !countryCode
		afterSubscriber := !strings.Contains(sep, "/") && len(prev) >= 5 && (i >= 2 || len(prev) >= 8)
		if newTrunk || afterSubscriber {
			return candidate[:groups[i-1][1]]
		}
	}
	return candidate
}

// findPhones returns classified phone contacts in normalized text
func findPhones(text string) []models.Contact {
	var out []models.Contact

	for _, m := range labeledPhone.FindAllStringSubmatch(text, -1) {
		if c, ok := phoneContact(m[1], models.SourceLabeledText); ok {
			out = append(out, c)
		}
	}
	for _, m := range internationalCandidate.FindAllString(text, -1) {
		if c, ok := phoneContact(m, models.SourcePageText); ok {
			out = append(out, c)
		}
	}
	for _, m := range nationalCandidate.FindAllStringSubmatch(text, -1) {
		if c, ok := phoneContact(m[1], models.SourcePageText); ok {
			out = append(out, c)
		}
	}
	return out
}

// phoneFromHref handles tel: links
func phoneFromHref(href string) (models.Contact, bool) {
	if !strings.HasPrefix(strings.ToLower(href), "tel:") {
		return models.Contact{}, false
	}
	return phoneContact(unescape(href[len("tel:"):]), models.SourceTelLink)
}

func phoneContact(candidate, source string) (models.Contact, bool) {
	value, confidence, ok := ClassifyPhone(firstNumber(candidate))
	if !ok {
		return models.Contact{}, false
	}
	return models.NewPhoneContact(value, confidence, source), true
}
