package models

// DetailDocument maps a detail-page table name to its label/value pairs.
// Only tables that produced at least one pair are kept.
type DetailDocument map[string]map[string]string

// Record is one tender listing row plus its optional detail enrichment.
//
// All listing fields are kept as the portal renders them; dates and
// amounts are not parsed.
type Record struct {
	CaseNumber   string `json:"tender_case_no"`
	Organization string `json:"org_name"`
	Title        string `json:"tender_name"`
	Type         string `json:"tender_type"`
	AnnounceDate string `json:"announce_date"`
	Deadline     string `json:"tender_deadline"`
	Budget       string `json:"budget"`

	// DetailLink is the absolute detail page URL, or "" when the row had none.
	DetailLink string `json:"detail_link"`

	// DetailData is set once by the detail phase when enrichment succeeded.
	DetailData DetailDocument `json:"detail_data,omitempty"`
}

// HasDetailLink reports whether the record can be enriched.
func (r *Record) HasDetailLink() bool {
	return r.DetailLink != ""
}

// Enrich attaches a detail document. Empty documents are ignored and a
// record that is already enriched is left untouched.
func (r *Record) Enrich(doc DetailDocument) bool {
	if len(doc) == 0 || r.DetailData != nil {
		return false
	}
	r.DetailData = doc
	return true
}
