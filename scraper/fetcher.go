package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/tendercrawl/retry"
	"golang.org/x/time/rate"
)

// Outcome is the result of a Fetch. Fetch never returns an error; a failed
// navigation is reported with Success=false and logged.
type Outcome struct {
	Success  bool
	FinalURL string
}

// FetcherOptions tunes a Fetcher.
type FetcherOptions struct {
	// BodyTimeout bounds the wait for <body> after navigation.
	BodyTimeout time.Duration

	// NavRate limits navigations per second; <= 0 disables pacing.
	NavRate float64

	// ReloadPause is slept after a reload in WaitForCondition.
	ReloadPause retry.Policy
}

// Fetcher navigates the crawl tab and waits for page conditions.
type Fetcher struct {
	page    Page
	opts    FetcherOptions
	limiter *rate.Limiter
	snap    *Snapshotter
	logger  *slog.Logger
}

// NewFetcher wraps page. snap may be nil to disable diagnostic snapshots.
func NewFetcher(page Page, opts FetcherOptions, snap *Snapshotter, logger *slog.Logger) *Fetcher {
	limit := rate.Inf
	if opts.NavRate > 0 {
		limit = rate.Limit(opts.NavRate)
	}
	return &Fetcher{
		page:    page,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		snap:    snap,
		logger:  logger,
	}
}

// Page returns the tab driven by this fetcher.
func (f *Fetcher) Page() Page {
	return f.page
}

// Fetch navigates to url and waits until the document body exists.
func (f *Fetcher) Fetch(ctx context.Context, url string) Outcome {
	if err := f.limiter.Wait(ctx); err != nil {
		f.logger.Error("navigation aborted", "url", url, "error", err)
		return Outcome{}
	}

	if err := f.page.Navigate(ctx, url); err != nil {
		f.logger.Error("navigation failed", "url", url, "error", err)
		return Outcome{}
	}

	bodyCtx, cancel := withTimeout(ctx, f.opts.BodyTimeout)
	defer cancel()
	if _, err := f.page.WaitFor(bodyCtx, "body", Presence); err != nil {
		f.logger.Error("page body never appeared", "url", url, "error", err)
		return Outcome{}
	}

	finalURL, err := f.page.URL(ctx)
	if err != nil || finalURL == "" {
		finalURL = url
	}
	f.logger.Debug("page loaded", "url", url, "finalURL", finalURL)
	return Outcome{Success: true, FinalURL: finalURL}
}

// WaitForCondition polls for selector to satisfy cond for up to timeout.
// On timeout it reloads the page and tries again, for at most retries
// attempts in total. ok is false once the attempts are spent or when the
// wait fails for a reason other than a timeout; the latter also triggers a
// diagnostic snapshot.
func (f *Fetcher) WaitForCondition(ctx context.Context, selector string, cond Condition, timeout time.Duration, retries int) (html string, ok bool) {
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; attempt <= retries; attempt++ {
		waitCtx, cancel := withTimeout(ctx, timeout)
		html, err := f.page.WaitFor(waitCtx, selector, cond)
		cancel()
		if err == nil {
			return html, true
		}
		if ctx.Err() != nil {
			return "", false
		}
		if !isTimeout(err) {
			f.logger.Error("wait for element failed",
				"selector", selector, "condition", cond, "error", err)
			f.Snapshot(ctx, "wait-"+string(cond))
			return "", false
		}

		f.logger.Warn("wait for element timed out",
			"selector", selector, "condition", cond,
			"attempt", attempt, "of", retries)
		if attempt == retries {
			break
		}
		if err := f.page.Reload(ctx); err != nil {
			f.logger.Error("reload before retry failed", "error", err)
		}
		if _, err := f.opts.ReloadPause.Pause(ctx); err != nil {
			return "", false
		}
	}
	return "", false
}

// Snapshot dumps the current page for post-mortem debugging. Failures are
// logged and otherwise ignored.
func (f *Fetcher) Snapshot(ctx context.Context, reason string) {
	if f.snap == nil {
		return
	}
	f.snap.Capture(ctx, f.page, reason)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
