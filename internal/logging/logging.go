// Package logging configures the slog logger used by the recall binary.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a config value to a Format. Unknown values yield an
// error so a typo in the config file is noticed.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text", "tint", "human":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatAuto, fmt.Errorf("unknown log format %q", s)
	}
}

// ParseLevel converts s to a level. An empty string yields def.
func ParseLevel(s string, def slog.Level) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return def, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DefaultLevel is debug for an interactive session and info otherwise.
func DefaultLevel(w io.Writer) slog.Level {
	if IsTTY(w) {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// New builds a logger writing to w. FormatAuto picks the colour handler when
// w is a terminal.
func New(w io.Writer, format Format, level slog.Level) *slog.Logger {
	if format == FormatText || (format == FormatAuto && IsTTY(w)) {
		return slog.New(tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup installs a stderr logger as the slog default. Call once after flags
// and config are resolved.
func Setup(format Format, level slog.Level) {
	slog.SetDefault(New(os.Stderr, format, level))
}
