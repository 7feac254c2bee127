package scraper

import (
	"context"

	"github.com/use-agent/tendercrawl/session"
)

// Condition is what WaitFor waits for on an element.
type Condition string

const (
	Presence  Condition = "presence"
	Visible   Condition = "visible"
	Clickable Condition = "clickable"
)

// Page is the single browser tab the crawl pipeline drives. Every method
// honours ctx; a wait that runs out of time returns an error satisfying
// errors.Is(err, context.DeadlineExceeded).
//
// Implementations are not safe for concurrent use: exactly one component
// navigates at a time.
type Page interface {
	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching selector satisfies cond and
	// returns its outer HTML.
	WaitFor(ctx context.Context, selector string, cond Condition) (string, error)

	// Reload reloads the current document.
	Reload(ctx context.Context) error

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// URL returns the current location after redirects.
	URL(ctx context.Context) (string, error)

	// Cookies returns the cookies visible to the current location.
	Cookies(ctx context.Context) ([]session.Cookie, error)

	// SetCookie installs one cookie in the browser.
	SetCookie(ctx context.Context, c session.Cookie) error

	// ClearCookies removes every browser cookie.
	ClearCookies(ctx context.Context) error

	// ScrollToBottom scrolls the document to its end to trigger lazy content.
	ScrollToBottom(ctx context.Context) error

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
