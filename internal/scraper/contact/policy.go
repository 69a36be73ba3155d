package contact

import (
	"sort"

	"jobleads/pkg/models"
)

// Selection is the outcome of the fallback policy
type Selection struct {
	Contacts []models.Contact
	Best     *models.Contact
	Tier     models.Tier
}

// Select applies the fallback policy to one job:
//
//   - valid emails and phones already on the listing win with tier high and
//     are kept verbatim
//   - scraped emails and phones give tier very_high
//   - an external application link is only used when no email or phone
//     exists, with tier medium
//   - otherwise nothing, tier none
//
// When the challenge on the detail page could not be solved, emails and
// phones scraped from that page are discarded and only external links and
// partner-page contacts remain. External links never appear next to direct
// contacts.
func Select(job models.JobRecord, scraped []models.Contact, challengeFailed bool) Selection {
	if existing := ExistingContacts(job); len(existing) > 0 {
		return Selection{Contacts: existing, Best: best(existing), Tier: models.TierHigh}
	}

	var direct, links []models.Contact
	for _, c := range Dedupe(scraped) {
		if c.IsDirect() {
			if challengeFailed && c.Source != models.SourcePartnerPage {
				continue
			}
			direct = append(direct, c)
		} else if c.Type == models.ContactTypeExternalLink {
			links = append(links, c)
		}
	}

	if len(direct) > 0 {
		return Selection{Contacts: direct, Best: best(direct), Tier: models.TierVeryHigh}
	}

	if len(links) == 0 && job.ExternalURL != "" {
		if target, ok := resolveLink(job.ExternalURL, ""); ok {
			links = append(links, models.NewExternalLinkContact(target, models.SourceExternalApply))
		}
	}
	if len(links) > 0 {
		chosen := []models.Contact{links[0]}
		return Selection{Contacts: chosen, Best: &chosen[0], Tier: models.TierMedium}
	}

	return Selection{Contacts: []models.Contact{}, Tier: models.TierNone}
}

// ExistingContacts returns the listing's email and phone when they are
// valid. Values are kept verbatim; placeholders such as "keine Angabe" and
// job-identifier shaped phones are dropped.
func ExistingContacts(job models.JobRecord) []models.Contact {
	var out []models.Contact
	if IsValidEmail(job.ContactEmail) {
		out = append(out, models.NewEmailContact(job.ContactEmail, models.ContactConfidenceHigh, models.SourceOriginalListing))
	}
	if _, _, ok := ClassifyPhone(job.ContactPhone); ok {
		out = append(out, models.NewPhoneContact(job.ContactPhone, models.ContactConfidenceHigh, models.SourceOriginalListing))
	}
	return out
}

// best picks the highest-confidence contact, emails before phones on ties
func best(contacts []models.Contact) *models.Contact {
	if len(contacts) == 0 {
		return nil
	}
	ranked := make([]models.Contact, len(contacts))
	copy(ranked, contacts)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence.Rank() != ranked[j].Confidence.Rank() {
			return ranked[i].Confidence.Rank() > ranked[j].Confidence.Rank()
		}
		return ranked[i].Type == models.ContactTypeEmail && ranked[j].Type != models.ContactTypeEmail
	})
	b := ranked[0]
	return &b
}
