package models

import "strings"

// ContactType tags the variant held by a Contact
type ContactType string

const (
	ContactTypeEmail        ContactType = "email"
	ContactTypePhone        ContactType = "phone"
	ContactTypeExternalLink ContactType = "external_link"
)

// ContactConfidence is the trust attached to a single extracted contact
type ContactConfidence string

const (
	ContactConfidenceLow    ContactConfidence = "low"
	ContactConfidenceMedium ContactConfidence = "medium"
	ContactConfidenceHigh   ContactConfidence = "high"
)

// Rank orders confidences so callers can compare them
func (c ContactConfidence) Rank() int {
	switch c {
	case ContactConfidenceHigh:
		return 3
	case ContactConfidenceMedium:
		return 2
	case ContactConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Contact sources
const (
	SourceOriginalListing = "original_listing"
	SourceMailtoLink      = "mailto_link"
	SourceTelLink         = "tel_link"
	SourceLabeledText     = "labeled_text"
	SourceAttribute       = "attribute"
	SourcePageText        = "page_text"
	SourcePartnerPage     = "partner_page"
	SourceExternalApply   = "external_apply_link"
)

// Contact is a tagged value: an email address, a phone number or an external
// application link.
type Contact struct {
	Type       ContactType       `json:"type"`
	Value      string            `json:"value"`
	Confidence ContactConfidence `json:"confidence"`
	Source     string            `json:"source"`
}

func NewEmailContact(value string, confidence ContactConfidence, source string) Contact {
	return Contact{Type: ContactTypeEmail, Value: value, Confidence: confidence, Source: source}
}

func NewPhoneContact(value string, confidence ContactConfidence, source string) Contact {
	return Contact{Type: ContactTypePhone, Value: value, Confidence: confidence, Source: source}
}

func NewExternalLinkContact(value string, source string) Contact {
	return Contact{Type: ContactTypeExternalLink, Value: value, Confidence: ContactConfidenceMedium, Source: source}
}

// IsDirect reports whether the contact reaches a person (email or phone)
func (c Contact) IsDirect() bool {
	switch c.Type {
	case ContactTypeEmail, ContactTypePhone:
		return true
	case ContactTypeExternalLink:
		return false
	default:
		return false
	}
}

// Key returns the normalized value used for deduplication
func (c Contact) Key() string {
	switch c.Type {
	case ContactTypeEmail:
		return string(c.Type) + ":" + strings.ToLower(strings.TrimSpace(c.Value))
	case ContactTypePhone:
		var b strings.Builder
		for _, r := range c.Value {
			if r == '+' || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		digits := b.String()
		if strings.HasPrefix(digits, "0049") {
			digits = "+49" + digits[4:]
		}
		return string(c.Type) + ":" + digits
	default:
		return string(c.Type) + ":" + strings.TrimSpace(c.Value)
	}
}
