package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type (
	/*
		LogConfiguration describes how the logger should be built. The zero
		value is usable - it logs INFO and up as text to stderr.

		The struct can be filled from a YAML file and individual fields then
		overridden from command line flags.
	*/
	LogConfiguration struct {
		Level      string `yaml:"defaultLevel"`
		Format     string `yaml:"format"`
		OutputPath string `yaml:"outputPath"`
		TimeFormat string `yaml:"timeFormat"`

		// replaces the writer selected by OutputPath, mostly for tests
		Writer io.Writer `yaml:"-"`
	}
)

const (
	defaultTimeFormat = "2006-01-02T15:04:05.0000Z0700"

	fmtTEXT = "text"
	fmtJSON = "json"
)

/*
New creates a logger based on configuration "cfg".
A nil configuration is interpreted as the zero configuration.
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &LogConfiguration{}
	}
	cfg.initDefaults()

	out, err := cfg.output()
	if err != nil {
		return nil, fmt.Errorf("selecting logger output: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.logLevel(),
		ReplaceAttr: formatTimeAttr(cfg.TimeFormat),
	}

	var h slog.Handler
	switch cfg.Format {
	case fmtTEXT:
		h = slog.NewTextHandler(out, opts)
	case fmtJSON:
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(h), nil
}

func (cfg *LogConfiguration) initDefaults() {
	if cfg.Format == "" {
		cfg.Format = fmtTEXT
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "stderr"
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaultTimeFormat
	}
}

func (cfg *LogConfiguration) logLevel() slog.Level {
	switch strings.ToLower(cfg.Level) {
	case "warning":
		return slog.LevelWarn
	case "trace":
		// slog doesn't have trace level, parse it to debug
		return slog.LevelDebug
	case "none":
		return levelNone
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (cfg *LogConfiguration) output() (io.Writer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil
	}
	switch cfg.OutputPath {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}
	file, err := os.OpenFile(filepath.Clean(cfg.OutputPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", cfg.OutputPath, err)
	}
	return file, nil
}

// levelNone is a level higher than any used for logging, ie nothing gets logged.
const levelNone = slog.Level(100)

func formatTimeAttr(format string) func(groups []string, a slog.Attr) slog.Attr {
	switch format {
	case "":
		// whatever handler does by default...
		return nil
	case "none":
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	default:
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t := a.Value.Time(); !t.IsZero() {
					a.Value = slog.StringValue(t.Format(format))
				}
			}
			return a
		}
	}
}
