package models

import "time"

// EnrichmentStatus is the lifecycle state of one enrichment call
type EnrichmentStatus string

const (
	EnrichmentStarted   EnrichmentStatus = "started"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// Tier is the coarse trust label of an enrichment result
type Tier string

const (
	TierNone     Tier = "none"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very_high"
)

// ChallengeOutcome summarises what happened with an image challenge on the page
type ChallengeOutcome string

const (
	ChallengeSkipped ChallengeOutcome = "skipped"
	ChallengeNone    ChallengeOutcome = "no_challenge"
	ChallengeSolved  ChallengeOutcome = "solved"
	ChallengeFailed  ChallengeOutcome = "failed"
)

// EnrichmentResult wraps a JobRecord with the contacts found for it. It is
// owned by the call that produced it.
type EnrichmentResult struct {
	Job         JobRecord        `json:"job"`
	Status      EnrichmentStatus `json:"status"`
	Contacts    []Contact        `json:"contacts"`
	BestContact *Contact         `json:"bestContact"`
	Confidence  Tier             `json:"confidence"`

	// Flattened contact fields. Explicitly null when nothing was found.
	ContactEmail *string `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone"`
	ExternalLink *string `json:"externalLink"`

	Challenge   ChallengeOutcome `json:"challengeOutcome,omitempty"`
	SourceURL   string           `json:"sourceUrl,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt"`
	DurationMs  int64            `json:"durationMs"`
}

// NewEnrichmentResult creates a result in the started state
func NewEnrichmentResult(job JobRecord) *EnrichmentResult {
	return &EnrichmentResult{
		Job:        job,
		Status:     EnrichmentStarted,
		Contacts:   []Contact{},
		Confidence: TierNone,
		StartedAt:  time.Now(),
	}
}

// Complete marks the result completed with the given contacts and tier and
// fills the flattened contact fields.
func (r *EnrichmentResult) Complete(contacts []Contact, best *Contact, tier Tier) {
	r.Contacts = contacts
	if r.Contacts == nil {
		r.Contacts = []Contact{}
	}
	r.BestContact = best
	r.Confidence = tier
	r.ContactEmail, r.ContactPhone, r.ExternalLink = nil, nil, nil

	for i := range r.Contacts {
		c := r.Contacts[i]
		switch c.Type {
		case ContactTypeEmail:
			if r.ContactEmail == nil {
				r.ContactEmail = &c.Value
			}
		case ContactTypePhone:
			if r.ContactPhone == nil {
				r.ContactPhone = &c.Value
			}
		case ContactTypeExternalLink:
			if r.ExternalLink == nil {
				r.ExternalLink = &c.Value
			}
		}
	}

	r.Status = EnrichmentCompleted
	r.finish()
}

// Fail marks the result failed. Contacts are cleared so a failed result never
// carries partial values.
func (r *EnrichmentResult) Fail(err error) {
	r.Status = EnrichmentFailed
	r.Contacts = []Contact{}
	r.BestContact = nil
	r.Confidence = TierNone
	r.ContactEmail, r.ContactPhone, r.ExternalLink = nil, nil, nil
	if err != nil {
		r.Error = err.Error()
	}
	r.finish()
}

func (r *EnrichmentResult) finish() {
	now := time.Now()
	r.CompletedAt = &now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
}

// BatchSummary aggregates the results of a batch run
type BatchSummary struct {
	Total        int          `json:"total"`
	Completed    int          `json:"completed"`
	Failed       int          `json:"failed"`
	ByConfidence map[Tier]int `json:"byConfidence"`
}

// Summarize builds a BatchSummary from results
func Summarize(results []*EnrichmentResult) BatchSummary {
	summary := BatchSummary{
		Total:        len(results),
		ByConfidence: make(map[Tier]int),
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		switch r.Status {
		case EnrichmentCompleted:
			summary.Completed++
		case EnrichmentFailed:
			summary.Failed++
		}
		summary.ByConfidence[r.Confidence]++
	}
	return summary
}
