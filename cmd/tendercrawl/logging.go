package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	"github.com/use-agent/tendercrawl/config"
)

// initLogger builds the run logger. Records go to stdout and, when a log
// directory is configured, to <dir>/crawler_<date>.log as well. The text
// format colours stdout when it is a terminal; the file never gets colour.
func initLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var file io.WriteCloser
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		name := filepath.Join(cfg.Dir, "crawler_"+time.Now().Format("2006-01-02")+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		file = f
	}

	var handlers []slog.Handler
	if cfg.Format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		if file != nil {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	} else {
		handlers = append(handlers, tint.NewHandler(os.Stdout, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.DateTime,
			NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		}))
		if file != nil {
			handlers = append(handlers, slog.NewTextHandler(file, opts))
		}
	}

	closeFn := func() {}
	if file != nil {
		closeFn = func() { _ = file.Close() }
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
