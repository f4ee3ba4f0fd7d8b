package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
)

// New создаёт цветной логгер в stderr. Если задан dir, вывод дублируется
// в dir/app.log без цветов. Возвращённый closer закрывает файл.
func New(level, dir string) (*slog.Logger, io.Closer, error) {
	var (
		out     io.Writer = os.Stderr
		closer  io.Closer = nopCloser{}
		noColor bool
	)

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
		noColor = true
	}

	logger := slog.New(tint.NewHandler(out, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}))
	return logger, closer, nil
}

// ParseLevel разбирает debug/info/warn/error, по умолчанию info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
