package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration read from the environment.
// The crawl target itself lives in a separate JSON file, see LoadTarget.
type Config struct {
	TargetFile string
	Browser    BrowserConfig
	Crawl      CrawlConfig
	Selectors  SelectorConfig
	Storage    StorageConfig
	Server     ServerConfig
	Webhook    WebhookConfig
	Log        LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// Proxy is an optional proxy address passed to Chromium.
	Proxy string

	// AcceptLanguage is sent as an extra header on every request.
	AcceptLanguage string // default: "zh-TW,zh;q=0.9,en;q=0.8"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// PageLoadTimeout bounds a single navigation.
	PageLoadTimeout time.Duration // default: 30s

	// NavRate is the maximum number of navigations per second.
	NavRate float64 // default: 1
}

// CrawlConfig controls traversal, retries and checkpointing.
type CrawlConfig struct {
	// MaxPages caps the number of listing pages; 0 means unlimited.
	MaxPages int

	// SkipDetails disables the detail phase.
	SkipDetails bool

	// DetailRetries is the attempt budget per detail page.
	DetailRetries int // default: 3

	// WaitRetries is the reload-and-retry budget for element waits.
	WaitRetries int // default: 3

	// ListCheckpointEvery flushes a partial snapshot every N listing pages.
	ListCheckpointEvery int // default: 5

	// DetailCheckpointEvery flushes a partial snapshot every N detail pages.
	DetailCheckpointEvery int // default: 10

	// DetailCacheSize bounds the parsed documents kept for rows that share
	// a detail link. Least recently used entries are evicted first.
	DetailCacheSize int // default: 1024

	BodyTimeout      time.Duration // default: 20s
	RowsTimeout      time.Duration // default: 10s
	ContainerTimeout time.Duration // default: 20s
	TablesTimeout    time.Duration // default: 10s

	// Pauses are [min, max] ranges; a random duration in the range is slept.
	BootstrapPause [2]time.Duration // default: 3s-5s
	PagePause      [2]time.Duration // default: 2s-3s
	DetailPause    [2]time.Duration // default: 5s-8s
	ReloadPause    [2]time.Duration // default: 2s-4s
	RetryPause     time.Duration    // default: 3s
}

// SelectorConfig holds the CSS selectors describing the portal markup.
// They are compiled once at startup by extract.NewLayout.
type SelectorConfig struct {
	ListRows        string // default: "table#tpam > tbody > tr"
	PageLinks       string // default: "span#pagelinks a"
	NextLabel       string // default: "下一頁"
	DetailContainer string // default: "div#printRange"
	DetailTables    string // default: "div#printRange > table"
}

// StorageConfig controls where files are written.
type StorageConfig struct {
	CookieDir  string // default: "cookies"
	OutputDir  string // default: "."
	OutputBase string // default: "procurement_data"
	DiagDir    string // default: "."
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	// Addr enables the status server when non-empty, e.g. "127.0.0.1:8080".
	Addr string
	Mode string // "debug", "release", "test"; default: "release"

	// APIKeys protects /api/v1/progress when non-empty. Health stays open.
	APIKeys []string
}

// WebhookConfig controls the completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
	Dir    string // default: "logs"; empty disables the log file
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		TargetFile: envOr("TENDER_CONFIG", "config.json"),
		Browser: BrowserConfig{
			Headless:       envBoolOr("TENDER_HEADLESS", true),
			NoSandbox:      envBoolOr("TENDER_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("TENDER_BROWSER_BIN"),
			UserAgent:      os.Getenv("TENDER_USER_AGENT"),
			Proxy:          os.Getenv("TENDER_PROXY"),
			AcceptLanguage: envOr("TENDER_ACCEPT_LANGUAGE", "zh-TW,zh;q=0.9,en;q=0.8"),
			BlockedResourceTypes: envSliceOr("TENDER_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			PageLoadTimeout: envDurationOr("TENDER_PAGE_LOAD_TIMEOUT", 30*time.Second),
			NavRate:         envFloatOr("TENDER_NAV_RATE", 1.0),
		},
		Crawl: CrawlConfig{
			MaxPages:              envIntOr("TENDER_MAX_PAGES", 0),
			SkipDetails:           envBoolOr("TENDER_SKIP_DETAILS", false),
			DetailRetries:         envIntOr("TENDER_DETAIL_RETRIES", 3),
			WaitRetries:           envIntOr("TENDER_WAIT_RETRIES", 3),
			ListCheckpointEvery:   envIntOr("TENDER_LIST_CHECKPOINT_EVERY", 5),
			DetailCheckpointEvery: envIntOr("TENDER_DETAIL_CHECKPOINT_EVERY", 10),
			DetailCacheSize:       envIntOr("TENDER_DETAIL_CACHE_SIZE", 1024),
			BodyTimeout:           envDurationOr("TENDER_BODY_TIMEOUT", 20*time.Second),
			RowsTimeout:           envDurationOr("TENDER_ROWS_TIMEOUT", 10*time.Second),
			ContainerTimeout:      envDurationOr("TENDER_CONTAINER_TIMEOUT", 20*time.Second),
			TablesTimeout:         envDurationOr("TENDER_TABLES_TIMEOUT", 10*time.Second),
			BootstrapPause:        envRangeOr("TENDER_BOOTSTRAP_PAUSE", 3*time.Second, 5*time.Second),
			PagePause:             envRangeOr("TENDER_PAGE_PAUSE", 2*time.Second, 3*time.Second),
			DetailPause:           envRangeOr("TENDER_DETAIL_PAUSE", 5*time.Second, 8*time.Second),
			ReloadPause:           envRangeOr("TENDER_RELOAD_PAUSE", 2*time.Second, 4*time.Second),
			RetryPause:            envDurationOr("TENDER_RETRY_PAUSE", 3*time.Second),
		},
		Selectors: SelectorConfig{
			ListRows:        envOr("TENDER_SEL_LIST_ROWS", "table#tpam > tbody > tr"),
			PageLinks:       envOr("TENDER_SEL_PAGE_LINKS", "span#pagelinks a"),
			NextLabel:       envOr("TENDER_NEXT_LABEL", "下一頁"),
			DetailContainer: envOr("TENDER_SEL_DETAIL_CONTAINER", "div#printRange"),
			DetailTables:    envOr("TENDER_SEL_DETAIL_TABLES", "div#printRange > table"),
		},
		Storage: StorageConfig{
			CookieDir:  envOr("TENDER_COOKIE_DIR", "cookies"),
			OutputDir:  envOr("TENDER_OUTPUT_DIR", "."),
			OutputBase: envOr("TENDER_OUTPUT_BASE", "procurement_data"),
			DiagDir:    envOr("TENDER_DIAG_DIR", "."),
		},
		Server: ServerConfig{
			Addr:    os.Getenv("TENDER_STATUS_ADDR"),
			Mode:    envOr("TENDER_MODE", "release"),
			APIKeys: envSliceOr("TENDER_STATUS_KEYS", nil),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("TENDER_WEBHOOK_URL"),
			Secret: os.Getenv("TENDER_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("TENDER_LOG_LEVEL", "info"),
			Format: envOr("TENDER_LOG_FORMAT", "text"),
			Dir:    envOr("TENDER_LOG_DIR", "logs"),
		},
	}
}

// envRangeOr parses "min,max" durations, e.g. "2s,3s". A single value
// yields a fixed range.
func envRangeOr(key string, defLo, defHi time.Duration) [2]time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		lo, err := time.ParseDuration(strings.TrimSpace(parts[0]))
		if err != nil {
			return [2]time.Duration{defLo, defHi}
		}
		hi := lo
		if len(parts) > 1 {
			if d, err := time.ParseDuration(strings.TrimSpace(parts[1])); err == nil {
				hi = d
			}
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		return [2]time.Duration{lo, hi}
	}
	return [2]time.Duration{defLo, defHi}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
