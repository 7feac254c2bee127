package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/tendercrawl/extract"
	"github.com/use-agent/tendercrawl/models"
)

// ListExtractor reads listing pages from the crawl tab.
type ListExtractor struct {
	fetcher     *Fetcher
	layout      *extract.Layout
	rowsTimeout time.Duration
	retries     int
	logger      *slog.Logger
}

// NewListExtractor waits up to rowsTimeout for result rows, reloading up
// to retries times.
func NewListExtractor(f *Fetcher, layout *extract.Layout, rowsTimeout time.Duration, retries int, logger *slog.Logger) *ListExtractor {
	return &ListExtractor{
		fetcher:     f,
		layout:      layout,
		rowsTimeout: rowsTimeout,
		retries:     retries,
		logger:      logger,
	}
}

// Extract parses the page currently loaded in the tab. Rows that fail are
// logged and left out of Records(); a page without rows is returned empty,
// not as an error. An error means the page could not be read at all.
func (e *ListExtractor) Extract(ctx context.Context) (*extract.ListPage, error) {
	page := e.fetcher.Page()

	if _, ok := e.fetcher.WaitForCondition(ctx, e.layout.Selectors.ListRows, Presence, e.rowsTimeout, e.retries); !ok {
		e.logger.Warn("no result rows found on listing page")
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeExtraction, "failed to read listing HTML", err)
	}
	pageURL, _ := page.URL(ctx)

	parsed, err := e.layout.ParseListing(html, pageURL)
	if err != nil {
		return nil, err
	}
	for _, row := range parsed.Failed() {
		e.logger.Warn("skipping listing row", "row", row.Index, "error", row.Err)
	}
	e.logger.Info("listing page extracted",
		"url", pageURL,
		"records", len(parsed.Rows)-len(parsed.Failed()),
		"skipped", len(parsed.Failed()),
		"hasNext", parsed.Next != "",
	)
	return parsed, nil
}

// ExtractRecords returns the records of the current listing page.
func (e *ListExtractor) ExtractRecords(ctx context.Context) []models.Record {
	page, err := e.Extract(ctx)
	if err != nil {
		e.logger.Error("listing extraction failed", "error", err)
		return []models.Record{}
	}
	return page.Records()
}

// NextPageLink returns the next page URL of the current listing page, or
// "" on the last page.
func (e *ListExtractor) NextPageLink(ctx context.Context) string {
	html, err := e.fetcher.Page().HTML(ctx)
	if err != nil {
		e.logger.Error("failed to read listing HTML for pagination", "error", err)
		return ""
	}
	pageURL, _ := e.fetcher.Page().URL(ctx)
	parsed, err := e.layout.ParseListing(html, pageURL)
	if err != nil {
		return ""
	}
	return parsed.Next
}
