// Package checkpoint writes timestamped JSON snapshots of crawled records.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/use-agent/tendercrawl/models"
)

// Writer persists record snapshots into one directory. Each call writes a
// new file named <base>[_<kind>_<n>]_<YYYYmmdd_HHMMSS>.json; files are never
// appended to.
type Writer struct {
	dir    string
	base   string
	now    func() time.Time
	logger *slog.Logger
}

// NewWriter creates a Writer. base is the file name prefix, e.g.
// "procurement_data".
func NewWriter(dir, base string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, base: base, now: time.Now, logger: logger}
}

// SaveListPartial writes the records collected after page listing pages.
func (w *Writer) SaveListPartial(records []models.Record, page int) (string, error) {
	return w.save(records, fmt.Sprintf("partial_%d", page))
}

// SaveDetailPartial writes the records after n processed detail pages.
func (w *Writer) SaveDetailPartial(records []models.Record, n int) (string, error) {
	return w.save(records, fmt.Sprintf("with_details_partial_%d", n))
}

// SaveFinal writes the complete record list.
func (w *Writer) SaveFinal(records []models.Record) (string, error) {
	return w.save(records, "")
}

func (w *Writer) save(records []models.Record, kind string) (string, error) {
	if records == nil {
		records = []models.Record{}
	}

	name := w.base
	if kind != "" {
		name += "_" + kind
	}
	name += "_" + w.now().Format("20060102_150405") + ".json"
	path := filepath.Join(w.dir, name)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", w.fail(path, err)
	}

	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", w.fail(path, err)
	}

	w.logger.Info("records saved", "path", path, "records", len(records))
	return path, nil
}

func (w *Writer) fail(path string, err error) error {
	w.logger.Error("failed to save records", "path", path, "error", err)
	return models.NewCrawlError(models.ErrCodePersist, "failed to write "+path, err)
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
