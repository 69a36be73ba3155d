package models

// JobRecord is a job posting as delivered by the job source. It is treated as
// read-only input by the enrichment pipeline.
type JobRecord struct {
	ID       string `json:"id" validate:"required,max=128"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`

	// URL of the job-detail page. When empty it is derived from ID and the
	// configured target base URL.
	URL string `json:"url,omitempty" validate:"omitempty,url"`

	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	ExternalURL  string `json:"externalUrl,omitempty" validate:"omitempty,url"`
}
