package models

// EnrichRequest is the payload for a synchronous single-job enrichment
type EnrichRequest struct {
	Job JobRecord `json:"job" validate:"required"`
}

// BatchEnrichRequest is the payload for an asynchronous batch enrichment
type BatchEnrichRequest struct {
	Jobs []JobRecord `json:"jobs" validate:"required,min=1,max=500,dive"`
}
