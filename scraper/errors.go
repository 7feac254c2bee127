package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/tendercrawl/models"
)

// categorizeError wraps raw browser errors into typed CrawlErrors so callers
// can tell timeouts from other navigation failures.
func categorizeError(err error, msg string) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavigation, msg, err)
	}
}

// isTimeout reports whether err is a wait that ran out of time.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
