package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// snapshotTimeout bounds a capture so a hung tab cannot block shutdown.
const snapshotTimeout = 15 * time.Second

// Snapshotter writes a screenshot and the page HTML when something
// unexpected happens.
type Snapshotter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewSnapshotter writes captures into dir.
func NewSnapshotter(dir string, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{dir: dir, now: time.Now, logger: logger}
}

// Capture writes error_<timestamp>.png and error_<timestamp>.html. It runs
// even when ctx is already cancelled.
func (s *Snapshotter) Capture(ctx context.Context, page Page, reason string) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("snapshot: create dir failed", "dir", s.dir, "error", err)
		return nil
	}

	stem := filepath.Join(s.dir, fmt.Sprintf("error_%s", s.now().Format("20060102_150405")))
	var written []string

	if png, err := page.Screenshot(ctx); err != nil {
		s.logger.Error("snapshot: screenshot failed", "reason", reason, "error", err)
	} else if err := os.WriteFile(stem+".png", png, 0o644); err != nil {
		s.logger.Error("snapshot: write screenshot failed", "error", err)
	} else {
		written = append(written, stem+".png")
	}

	if html, err := page.HTML(ctx); err != nil {
		s.logger.Error("snapshot: read HTML failed", "reason", reason, "error", err)
	} else if err := os.WriteFile(stem+".html", []byte(html), 0o644); err != nil {
		s.logger.Error("snapshot: write HTML failed", "error", err)
	} else {
		written = append(written, stem+".html")
	}

	if len(written) > 0 {
		s.logger.Error("diagnostic snapshot saved", "reason", reason, "files", written)
	}
	return written
}
