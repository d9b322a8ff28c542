package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		minLevel   slog.Level
		log        func(*slog.Logger)
		wantSource bool
	}{
		{"info below warn threshold", slog.LevelWarn, func(l *slog.Logger) { l.Info("m") }, false},
		{"warn at threshold", slog.LevelWarn, func(l *slog.Logger) { l.Warn("m") }, true},
		{"error above threshold", slog.LevelWarn, func(l *slog.Logger) { l.Error("m") }, true},
		{"info with debug threshold", slog.LevelDebug, func(l *slog.Logger) { l.Info("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			tt.log(slog.New(newSourceHandler(base, tt.minLevel)))

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestSourceHandler_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(newSourceHandler(base, slog.LevelWarn)).With("component", "sweep").WithGroup("row")

	l.Warn("failed", "id", 7)

	out := buf.String()
	assert.Contains(t, out, "component=sweep")
	assert.Contains(t, out, "row.id=7")
	assert.Contains(t, out, "sourcehandler_test.go")
}
