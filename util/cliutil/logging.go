package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogOptions struct {
	// info|debug|warn|error
	LogLevel string

	// text|json
	LogFormat string

	// defaults to os.Stdout
	Writer io.Writer
}

func firstenv(envVarNames ...string) string {
	for _, name := range envVarNames {
		val := os.Getenv(name)
		if val != "" {
			return val
		}
	}
	return ""
}

// SetupSlog builds a logger from the passed options, falling back to env vars, and installs it as the slog default.
//
// Passing a zero LogOptions{} is ok.
//
// IMPOSTERWATCH_LOG_LEVEL / BSKYLOG_LOG_LEVEL = info|debug|warn|error
//
// IMPOSTERWATCH_LOG_FORMAT / BSKYLOG_LOG_FMT = text|json
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	if options.LogLevel == "" {
		options.LogLevel = firstenv("IMPOSTERWATCH_LOG_LEVEL", "BSKYLOG_LOG_LEVEL")
	}
	level, err := parseLevel(options.LogLevel)
	if err != nil {
		return nil, err
	}

	if options.LogFormat == "" {
		options.LogFormat = firstenv("IMPOSTERWATCH_LOG_FORMAT", "BSKYLOG_LOG_FMT")
	}
	out := options.Writer
	if out == nil {
		out = os.Stdout
	}

	hopts := slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(options.LogFormat) {
	case "", "text":
		handler = slog.NewTextHandler(out, &hopts)
	case "json":
		handler = slog.NewJSONHandler(out, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", options.LogFormat)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %#v", raw)
	}
}
