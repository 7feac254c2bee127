// Package crawler drives a full crawl: session bootstrap, the listing
// pagination loop, detail enrichment, checkpoints and the final flush.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/use-agent/tendercrawl/checkpoint"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/extract"
	"github.com/use-agent/tendercrawl/models"
	"github.com/use-agent/tendercrawl/retry"
	"github.com/use-agent/tendercrawl/scraper"
	"github.com/use-agent/tendercrawl/session"
	"github.com/use-agent/tendercrawl/simhash"
)

// Result summarises a run. Records is never nil.
type Result struct {
	Records          []models.Record
	Pages            int
	DetailsProcessed int
	DetailsEnriched  int

	// OutputPath is the final snapshot file, or "" if it could not be written.
	OutputPath string
}

// Crawler owns the browser tab for the duration of a run. It is not safe
// for concurrent use; Progress may be read from other goroutines.
type Crawler struct {
	fetcher  *scraper.Fetcher
	list     *scraper.ListExtractor
	detail   *scraper.DetailExtractor
	sessions *session.Store
	auth     Authenticator
	writer   *checkpoint.Writer
	cfg      config.CrawlConfig
	progress *Progress
	logger   *slog.Logger

	// details holds parsed documents by detail URL for rows that share a link.
	details *lru.Cache[string, models.DetailDocument]

	bootstrapPause retry.Policy
	pagePause      retry.Policy
	detailPause    retry.Policy
}

// New wires a Crawler around an already configured fetcher. It fails only
// when cfg.DetailCacheSize is not positive.
func New(
	fetcher *scraper.Fetcher,
	layout *extract.Layout,
	sessions *session.Store,
	auth Authenticator,
	writer *checkpoint.Writer,
	cfg config.CrawlConfig,
	logger *slog.Logger,
) (*Crawler, error) {
	details, err := lru.New[string, models.DetailDocument](cfg.DetailCacheSize)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeConfig,
			fmt.Sprintf("invalid detail cache size %d", cfg.DetailCacheSize), err)
	}
	return &Crawler{
		fetcher:  fetcher,
		list:     scraper.NewListExtractor(fetcher, layout, cfg.RowsTimeout, cfg.WaitRetries, logger),
		detail: scraper.NewDetailExtractor(fetcher, layout, scraper.DetailOptions{
			ContainerTimeout: cfg.ContainerTimeout,
			TablesTimeout:    cfg.TablesTimeout,
			RetryPause:       cfg.RetryPause,
		}, logger),
		sessions: sessions,
		auth:     auth,
		writer:   writer,
		cfg:      cfg,
		progress: NewProgress(),
		logger:   logger,
		details:  details,

		bootstrapPause: retry.Jitter(1, cfg.BootstrapPause[0], cfg.BootstrapPause[1]),
		pagePause:      retry.Jitter(1, cfg.PagePause[0], cfg.PagePause[1]),
		detailPause:    retry.Jitter(1, cfg.DetailPause[0], cfg.DetailPause[1]),
	}, nil
}

// Progress returns the live counters of this crawler.
func (c *Crawler) Progress() *Progress {
	return c.progress
}

// Run crawls targetURL. The final snapshot is written on every exit path,
// including fatal bootstrap errors and cancellation, so the returned Result
// is always usable. A non-nil error means the run did not complete.
func (c *Crawler) Run(ctx context.Context, targetURL string) (res *Result, err error) {
	res = &Result{Records: []models.Record{}}

	defer func() {
		if err != nil {
			c.progress.fail(err)
			if !errors.Is(err, context.Canceled) {
				c.logger.Error("crawl aborted", "error", err)
				c.fetcher.Snapshot(ctx, "fatal")
			}
		}
		if path, ferr := c.writer.SaveFinal(res.Records); ferr == nil {
			res.OutputPath = path
			c.progress.lastCheckpoint.Store(path)
		}
		c.progress.setPhase(PhaseDone)
	}()

	c.progress.setPhase(PhaseBootstrap)
	if err := c.bootstrap(ctx, targetURL); err != nil {
		return res, err
	}

	c.progress.setPhase(PhaseList)
	c.listPhase(ctx, targetURL, res)

	if c.cfg.SkipDetails {
		c.logger.Info("detail phase skipped")
	} else {
		c.progress.setPhase(PhaseDetail)
		c.detailPhase(ctx, res)
	}

	if err := ctx.Err(); err != nil {
		c.logger.Warn("crawl interrupted", "records", len(res.Records))
		return res, err
	}

	c.logger.Info("crawl completed",
		"pages", res.Pages,
		"records", len(res.Records),
		"detailsProcessed", res.DetailsProcessed,
		"detailsEnriched", res.DetailsEnriched,
	)
	return res, nil
}

// bootstrap restores or establishes the portal session. Every failure is
// fatal to the run.
func (c *Crawler) bootstrap(ctx context.Context, targetURL string) error {
	domain := session.DomainKey(targetURL)
	page := c.fetcher.Page()

	state, loaded, err := c.sessions.Load(domain)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSession, "failed to load session", err)
	}
	if loaded {
		// Cookies can only be set once the tab is on the target origin.
		if out := c.fetcher.Fetch(ctx, targetURL); !out.Success {
			return models.NewCrawlError(models.ErrCodeNavigation, "failed to open "+targetURL, ctx.Err())
		}
		c.applyCookies(ctx, state)
	}

	out := c.fetcher.Fetch(ctx, targetURL)
	if !out.Success {
		return models.NewCrawlError(models.ErrCodeNavigation, "failed to open "+targetURL, ctx.Err())
	}
	if _, err := c.bootstrapPause.Pause(ctx); err != nil {
		return err
	}

	current, _ := page.URL(ctx)
	if current == "" {
		current = out.FinalURL
	}
	lower := strings.ToLower(current)
	if current == "" || strings.Contains(lower, "error") || strings.Contains(lower, "404") {
		return models.NewCrawlError(models.ErrCodeNavigation, "target page reported an error: "+current, nil)
	}

	if loaded && !strings.Contains(lower, "login") {
		c.logger.Info("session restored", "domain", domain, "cookies", len(state.Cookies))
		return nil
	}

	c.logger.Info("login required", "domain", domain, "sessionLoaded", loaded, "url", current)
	if err := c.auth.Login(ctx, page); err != nil {
		return models.NewCrawlError(models.ErrCodeLogin, "login failed", err)
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSession, "failed to read browser cookies", err)
	}
	saved, err := c.sessions.Save(domain, cookies)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSession, "failed to save session", err)
	}
	c.logger.Info("session saved", "domain", domain, "cookies", len(saved.Cookies))
	return nil
}

func (c *Crawler) applyCookies(ctx context.Context, state session.State) {
	page := c.fetcher.Page()
	applied := 0
	for _, ck := range state.Cookies {
		if err := page.SetCookie(ctx, ck); err != nil {
			c.logger.Warn("failed to apply cookie", "name", ck.Name, "error", err)
			continue
		}
		applied++
	}
	c.logger.Info("session cookies applied", "applied", applied, "total", len(state.Cookies))
}

// listPhase follows the pager from targetURL. The first page is read from
// the tab bootstrap left on it when possible. A failed fetch ends the phase
// but keeps the records collected so far.
func (c *Crawler) listPhase(ctx context.Context, targetURL string, res *Result) {
	var prevPage uint64
	next := targetURL
	for next != "" {
		if ctx.Err() != nil {
			return
		}
		if res.Pages > 0 {
			if _, err := c.pagePause.Pause(ctx); err != nil {
				return
			}
		}

		log := c.logger.With("page", res.Pages+1, "url", next)
		if res.Pages == 0 && c.onPage(ctx, next) {
			log.Debug("listing already open after bootstrap")
		} else if out := c.fetcher.Fetch(ctx, next); !out.Success {
			log.Warn("listing page fetch failed, ending list phase")
			return
		}
		parsed, err := c.list.Extract(ctx)
		if err != nil {
			log.Warn("listing page unreadable, ending list phase", "error", err)
			return
		}

		records := parsed.Records()
		fp := simhash.OfRecords(records)
		if res.Pages > 0 && fp != 0 && fp == prevPage {
			log.Warn("pager returned the previous page again, ending list phase")
			return
		}
		prevPage = fp

		res.Records = append(res.Records, records...)
		res.Pages++
		c.progress.pages.Store(int64(res.Pages))
		c.progress.records.Store(int64(len(res.Records)))

		if every := c.cfg.ListCheckpointEvery; every > 0 && res.Pages%every == 0 {
			c.checkpoint(c.writer.SaveListPartial(res.Records, res.Pages))
		}
		if c.cfg.MaxPages > 0 && res.Pages >= c.cfg.MaxPages {
			log.Info("page limit reached", "maxPages", c.cfg.MaxPages)
			return
		}
		if parsed.Next == "" {
			log.Info("no next page, list phase complete", "records", len(res.Records))
		}
		next = parsed.Next
	}
}

// detailPhase enriches every record that has a detail link. A record whose
// detail page yields nothing keeps no detail_data. Rows sharing a link reuse
// the first successful document.
func (c *Crawler) detailPhase(ctx context.Context, res *Result) {
	total := 0
	for i := range res.Records {
		if res.Records[i].HasDetailLink() {
			total++
		}
	}
	c.logger.Info("starting detail phase", "records", total)

	fetched := 0
	for i := range res.Records {
		rec := &res.Records[i]
		if !rec.HasDetailLink() {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		doc, cached := c.details.Get(rec.DetailLink)
		if !cached {
			if fetched > 0 {
				if _, err := c.detailPause.Pause(ctx); err != nil {
					return
				}
			}
			doc = c.detail.Parse(ctx, rec.DetailLink, c.cfg.DetailRetries)
			if ctx.Err() != nil {
				return
			}
			fetched++
			if len(doc) > 0 {
				c.details.Add(rec.DetailLink, doc)
			}
		}
		res.DetailsProcessed++
		if rec.Enrich(doc) {
			res.DetailsEnriched++
		} else {
			c.logger.Warn("no detail data extracted", "case", rec.CaseNumber, "url", rec.DetailLink)
		}
		c.progress.processed.Store(int64(res.DetailsProcessed))
		c.progress.enriched.Store(int64(res.DetailsEnriched))

		c.logger.Debug("detail processed", "n", res.DetailsProcessed, "of", total, "cached", cached)
		if every := c.cfg.DetailCheckpointEvery; every > 0 && res.DetailsProcessed%every == 0 {
			c.checkpoint(c.writer.SaveDetailPartial(res.Records, res.DetailsProcessed))
		}
	}
}

// onPage reports whether the tab is currently showing url.
func (c *Crawler) onPage(ctx context.Context, url string) bool {
	current, err := c.fetcher.Page().URL(ctx)
	return err == nil && current == url
}

// checkpoint records a partial snapshot. Write errors are already logged
// by the writer and never abort the run.
func (c *Crawler) checkpoint(path string, err error) {
	if err == nil {
		c.progress.lastCheckpoint.Store(path)
	}
}
