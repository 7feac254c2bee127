package models

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "running", "completed" or "failed"
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// ProgressResponse is the response for GET /api/v1/progress.
type ProgressResponse struct {
	// Phase is one of "idle", "bootstrap", "list", "detail", "done".
	Phase string `json:"phase"`

	// Pages is the number of listing pages extracted so far.
	Pages int `json:"pages"`

	// Records is the number of records collected by the list phase.
	Records int `json:"records"`

	// DetailsProcessed counts detail pages attempted.
	DetailsProcessed int `json:"details_processed"`

	// DetailsEnriched counts records that received detail data.
	DetailsEnriched int `json:"details_enriched"`

	// LastCheckpoint is the path of the most recent snapshot file.
	LastCheckpoint string `json:"last_checkpoint,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}
