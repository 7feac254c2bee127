package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/tendercrawl/extract"
	"github.com/use-agent/tendercrawl/models"
	"github.com/use-agent/tendercrawl/retry"
)

// Reasons a detail attempt yields nothing. Each consumes one attempt.
var (
	errDetailFetch     = errors.New("detail page fetch failed")
	errDetailContainer = errors.New("detail container did not load")
	errDetailTables    = errors.New("detail tables did not load")
	errDetailEmpty     = errors.New("detail tables held no label/value pairs")
)

// DetailOptions tunes a DetailExtractor.
type DetailOptions struct {
	ContainerTimeout time.Duration
	TablesTimeout    time.Duration

	// RetryPause is slept between attempts.
	RetryPause time.Duration
}

// DetailExtractor loads tender detail pages and parses their tables.
type DetailExtractor struct {
	fetcher *Fetcher
	layout  *extract.Layout
	opts    DetailOptions
	logger  *slog.Logger
}

// NewDetailExtractor builds a DetailExtractor sharing f's tab.
func NewDetailExtractor(f *Fetcher, layout *extract.Layout, opts DetailOptions, logger *slog.Logger) *DetailExtractor {
	return &DetailExtractor{fetcher: f, layout: layout, opts: opts, logger: logger}
}

// Parse loads url and extracts its tables, making up to maxRetries
// attempts. Each attempt starts from a cookie-free browser. It never fails:
// when no attempt yields data the returned document is empty.
func (d *DetailExtractor) Parse(ctx context.Context, url string, maxRetries int) models.DetailDocument {
	policy := retry.Fixed(maxRetries, d.opts.RetryPause)
	log := d.logger.With("url", url)

	var doc models.DetailDocument
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		got, err := d.attempt(ctx, url)
		if err != nil {
			log.Warn("detail attempt failed", "attempt", attempt, "of", policy.Attempts(), "error", err)
			return err
		}
		doc = got
		return nil
	})
	if err != nil {
		log.Warn("detail retries exhausted, returning empty document", "error", err)
		return models.DetailDocument{}
	}
	return doc
}

func (d *DetailExtractor) attempt(ctx context.Context, url string) (models.DetailDocument, error) {
	page := d.fetcher.Page()

	if err := page.ClearCookies(ctx); err != nil {
		d.logger.Warn("failed to clear cookies", "error", err)
	}

	if out := d.fetcher.Fetch(ctx, url); !out.Success {
		return nil, errDetailFetch
	}
	if _, ok := d.fetcher.WaitForCondition(ctx, d.layout.Selectors.DetailContainer, Presence, d.opts.ContainerTimeout, 1); !ok {
		return nil, errDetailContainer
	}
	if _, ok := d.fetcher.WaitForCondition(ctx, d.layout.Selectors.DetailTables, Presence, d.opts.TablesTimeout, 1); !ok {
		return nil, errDetailTables
	}

	if err := page.ScrollToBottom(ctx); err != nil {
		d.logger.Debug("scroll to bottom failed", "error", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read detail HTML: %w", err)
	}
	parsed, err := d.layout.ParseDetail(html)
	if err != nil {
		return nil, err
	}
	if len(parsed.Tables) == 0 {
		return nil, errDetailTables
	}

	doc := parsed.Document()
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w (%d tables)", errDetailEmpty, len(parsed.Tables))
	}
	d.logger.Info("detail page parsed", "url", url, "tables", len(parsed.Tables), "kept", len(doc))
	return doc, nil
}
