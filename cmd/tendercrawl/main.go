package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/tendercrawl/api"
	"github.com/use-agent/tendercrawl/checkpoint"
	"github.com/use-agent/tendercrawl/config"
	"github.com/use-agent/tendercrawl/crawler"
	"github.com/use-agent/tendercrawl/extract"
	"github.com/use-agent/tendercrawl/models"
	"github.com/use-agent/tendercrawl/retry"
	"github.com/use-agent/tendercrawl/scraper"
	"github.com/use-agent/tendercrawl/session"
	"github.com/use-agent/tendercrawl/webhook"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logger, closeLog, err := initLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tendercrawl: init logging:", err)
		return 1
	}
	defer closeLog()

	runID := webhook.NewRunID()
	logger = logger.With("run_id", runID)

	// ── 3. Target and selectors; nothing is launched on failure ─────
	target, err := config.LoadTarget(cfg.TargetFile)
	if err != nil {
		logger.Error("invalid target configuration", "path", cfg.TargetFile, "error", err)
		return 1
	}
	layout, err := extract.NewLayout(cfg.Selectors)
	if err != nil {
		logger.Error("invalid selector configuration", "error", err)
		return 1
	}
	targetURL := target.URL()
	logger.Info("tendercrawl starting",
		"target", targetURL,
		"headless", cfg.Browser.Headless,
		"maxPages", cfg.Crawl.MaxPages,
		"skipDetails", cfg.Crawl.SkipDetails,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Launch browser; released on every exit path ──────────────
	browser, err := scraper.Launch(cfg.Browser, logger)
	if err != nil {
		logger.Error("failed to launch browser", "error", err)
		return 1
	}
	defer browser.Close()

	// ── 5. Wire the pipeline ────────────────────────────────────────
	fetcher := scraper.NewFetcher(browser.Page(), scraper.FetcherOptions{
		BodyTimeout: cfg.Crawl.BodyTimeout,
		NavRate:     cfg.Browser.NavRate,
		ReloadPause: retry.Jitter(1, cfg.Crawl.ReloadPause[0], cfg.Crawl.ReloadPause[1]),
	}, scraper.NewSnapshotter(cfg.Storage.DiagDir, logger), logger)

	c, err := crawler.New(
		fetcher,
		layout,
		session.NewStore(cfg.Storage.CookieDir, logger),
		crawler.PlaceholderLogin{
			Pause:  retry.Jitter(1, cfg.Crawl.BootstrapPause[0], cfg.Crawl.BootstrapPause[1]),
			Logger: logger,
		},
		checkpoint.NewWriter(cfg.Storage.OutputDir, cfg.Storage.OutputBase, logger),
		cfg.Crawl,
		logger,
	)
	if err != nil {
		logger.Error("invalid crawl configuration", "error", err)
		return 1
	}

	// ── 6. Optional status server ───────────────────────────────────
	if cfg.Server.Addr != "" {
		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: api.NewRouter(c.Progress(), cfg.Server, time.Now()),
		}
		go func() {
			logger.Info("status server listening", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server forced shutdown", "error", err)
			}
		}()
	}

	// ── 7. Crawl ────────────────────────────────────────────────────
	res, runErr := c.Run(ctx, targetURL)

	// ── 8. Notify ───────────────────────────────────────────────────
	if cfg.Webhook.URL != "" {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		event := webhook.NewEvent(runID, webhook.Summary{
			Pages:            res.Pages,
			Records:          len(res.Records),
			DetailsProcessed: res.DetailsProcessed,
			DetailsEnriched:  res.DetailsEnriched,
			OutputPath:       res.OutputPath,
			Error:            models.DetailOf(runErr),
		})
		_ = webhook.DeliverWithRetry(notifyCtx, cfg.Webhook.URL, cfg.Webhook.Secret, event, webhook.DefaultDelays, logger)
		cancel()
	}

	if runErr != nil {
		logger.Error("crawl failed", "error", runErr, "output", res.OutputPath)
		return 1
	}
	logger.Info("tendercrawl finished", "records", len(res.Records), "output", res.OutputPath)
	return 0
}
