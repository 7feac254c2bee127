package crawler

import (
	"context"
	"log/slog"

	"github.com/use-agent/tendercrawl/retry"
	"github.com/use-agent/tendercrawl/scraper"
)

// Authenticator establishes a logged-in session in page. On success the
// crawler captures the page cookies and persists them.
type Authenticator interface {
	Login(ctx context.Context, page scraper.Page) error
}

// PlaceholderLogin performs no site interaction. It waits for the portal
// to settle and reports success, leaving whatever cookies the visit set.
type PlaceholderLogin struct {
	Pause  retry.Policy
	Logger *slog.Logger
}

func (l PlaceholderLogin) Login(ctx context.Context, page scraper.Page) error {
	url, _ := page.URL(ctx)
	l.Logger.Info("running placeholder login", "url", url)
	_, err := l.Pause.Pause(ctx)
	return err
}
