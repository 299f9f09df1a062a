package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitLogger_LevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "bogus", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			InitLogger(tt.level, "text")

			ctx := context.Background()
			assert.True(t, Logger.Enabled(ctx, tt.want))
			assert.False(t, Logger.Enabled(ctx, tt.want-4))
		})
	}
}

func TestWithConnection_AttachesField(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	WithConnection("conn-1").Info("client registered")

	assert.Contains(t, buf.String(), `"connection_id":"conn-1"`)
}
