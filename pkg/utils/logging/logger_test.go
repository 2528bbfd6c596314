package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/caselens/pkg/utils/logging"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			gt.Equal(t, logging.ParseLogLevel(tc.input), tc.expected)
		})
	}
}

func TestTee(t *testing.T) {
	var console, file bytes.Buffer
	logger := logging.Tee(
		logging.NewLoggerWithFormat(slog.LevelWarn, &console, logging.FormatJSON),
		logging.NewLoggerWithFormat(slog.LevelDebug, &file, logging.FormatJSON),
	)

	logger.With("run_id", "run-1").Debug("loaded export", "rows", 18)
	logger.Warn("optional column missing")

	gt.S(t, file.String()).Contains(`"msg":"loaded export"`)
	gt.S(t, file.String()).Contains(`"run_id":"run-1"`)
	gt.S(t, file.String()).Contains(`"msg":"optional column missing"`)
	gt.S(t, console.String()).Contains(`"msg":"optional column missing"`)
	gt.False(t, bytes.Contains(console.Bytes(), []byte("loaded export")))
}
