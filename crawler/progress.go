package crawler

import (
	"sync/atomic"

	"github.com/use-agent/tendercrawl/models"
)

// Crawl phases reported by Progress.
const (
	PhaseIdle      = "idle"
	PhaseBootstrap = "bootstrap"
	PhaseList      = "list"
	PhaseDetail    = "detail"
	PhaseDone      = "done"
)

// Progress exposes live crawl counters. It is written by the crawl loop
// and may be read concurrently, e.g. by the status API.
type Progress struct {
	phase          atomic.Value // string
	pages          atomic.Int64
	records        atomic.Int64
	processed      atomic.Int64
	enriched       atomic.Int64
	lastCheckpoint atomic.Value // string
	lastErr        atomic.Pointer[models.ErrorDetail]
}

// NewProgress returns counters in the idle phase.
func NewProgress() *Progress {
	p := &Progress{}
	p.phase.Store(PhaseIdle)
	p.lastCheckpoint.Store("")
	return p
}

func (p *Progress) setPhase(phase string) { p.phase.Store(phase) }

func (p *Progress) fail(err error) { p.lastErr.Store(models.DetailOf(err)) }

// Phase returns the current phase.
func (p *Progress) Phase() string {
	return p.phase.Load().(string)
}

// Failed reports whether the run hit a fatal error.
func (p *Progress) Failed() bool {
	return p.lastErr.Load() != nil
}

// Snapshot copies the counters into an API response.
func (p *Progress) Snapshot() models.ProgressResponse {
	return models.ProgressResponse{
		Phase:            p.Phase(),
		Pages:            int(p.pages.Load()),
		Records:          int(p.records.Load()),
		DetailsProcessed: int(p.processed.Load()),
		DetailsEnriched:  int(p.enriched.Load()),
		LastCheckpoint:   p.lastCheckpoint.Load().(string),
		Error:            p.lastErr.Load(),
	}
}
