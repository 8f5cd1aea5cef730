package logutil

import (
	"log/slog"
	"testing"
)

func TestParseSlogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tc := range cases {
		got, err := parseSlogLevel(tc.in)
		if err != nil {
			t.Fatalf("parseSlogLevel(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseSlogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseSlogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLoggerFromConfig_UnknownFormat(t *testing.T) {
	if _, err := newLoggerFromConfig(loggerConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewLoggerFromConfig_JSON(t *testing.T) {
	logger, err := newLoggerFromConfig(loggerConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("newLoggerFromConfig() error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}
