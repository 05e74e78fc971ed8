package internal

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the JSON logger. console is stdout, or stderr when stdout
// carries a protocol. The returned closer releases the log file, if any.
func newLogger(cfg ApplicationConfig, console io.Writer) (*slog.Logger, io.Closer) {
	out := console
	var closer io.Closer = nopCloser{}
	if cfg.LogFile.Enabled() {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile.Path,
			MaxSize:    cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAge:     cfg.LogFile.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(console, lj)
		closer = lj
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
