package scraper

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/models"
)

// Browser owns the Chromium process and the one tab the crawl uses.
type Browser struct {
	browser *rod.Browser
	page    *rodPage
	router  *rod.HijackRouter
	logger  *slog.Logger
}

// Launch starts Chromium and opens the crawl tab with stealth evasions,
// header overrides and resource blocking installed. Any failure is fatal to
// the run and reported as BROWSER_CRASH.
func Launch(cfg config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-notifications"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("ignore-certificate-errors"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	logger.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to open crawl tab",
			err,
		)
	}

	// Stealth JS must be registered before the first navigation.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		logger.Warn("stealth injection failed, proceeding without stealth",
			"error", evalErr,
		)
	}

	if cfg.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		}); uaErr != nil {
			logger.Warn("user agent override failed", "error", uaErr)
		}
	}

	if cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": cfg.AcceptLanguage}),
		}.Call(page)
	}

	b := &Browser{
		browser: browser,
		page:    &rodPage{page: page, timeout: cfg.PageLoadTimeout, logger: logger},
		logger:  logger,
	}
	b.router = setupHijack(page, cfg.BlockedResourceTypes)
	return b, nil
}

// Page returns the crawl tab.
func (b *Browser) Page() Page {
	return b.page
}

// Close stops request interception and kills the browser process.
// It is safe to call on every exit path.
func (b *Browser) Close() {
	if b == nil || b.browser == nil {
		return
	}
	if b.router != nil {
		if err := b.router.Stop(); err != nil {
			b.logger.Warn("failed to stop request router", "error", err)
		}
	}
	b.logger.Info("browser shutting down")
	if err := b.browser.Close(); err != nil {
		b.logger.Warn("browser close returned an error", "error", err)
	}
	b.browser = nil
	b.logger.Info("browser closed")
}
