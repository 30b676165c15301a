package util

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// NewLogger builds a stdout logger at the requested level.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// NewFileLogger mirrors log output to a size-rotated file alongside stdout.
// An empty path falls back to stdout only.
func NewFileLogger(level, path string) zerolog.Logger {
	if path == "" {
		return NewLogger(level)
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
	}
	w := io.MultiWriter(os.Stdout, rotated)
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
