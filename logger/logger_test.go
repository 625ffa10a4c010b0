package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_LogConfiguration_logLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "", want: slog.LevelInfo},
		{level: "info", want: slog.LevelInfo},
		{level: "INFO", want: slog.LevelInfo},
		{level: "debug", want: slog.LevelDebug},
		{level: "trace", want: slog.LevelDebug},
		{level: "warn", want: slog.LevelWarn},
		{level: "warning", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "none", want: levelNone},
		{level: "garbage", want: slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			cfg := LogConfiguration{Level: tc.level}
			require.Equal(t, tc.want, cfg.logLevel())
		})
	}
}

func Test_New(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		log, err := New(&LogConfiguration{Format: "yaml"})
		require.EqualError(t, err, `unknown log format "yaml"`)
		require.Nil(t, log)
	})

	t.Run("nil configuration is usable", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		require.NotNil(t, log)
		require.True(t, log.Enabled(context.Background(), slog.LevelInfo))
		require.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("json output with attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log, err := New(&LogConfiguration{Format: "json", Writer: buf})
		require.NoError(t, err)

		log.Info("oh no", Error(errors.New("something failed")), Round(42))

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "oh no", rec[slog.MessageKey])
		require.Equal(t, "something failed", rec[ErrorKey])
		require.EqualValues(t, 42, rec[RoundKey])
	})

	t.Run("level none disables output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log, err := New(&LogConfiguration{Level: "none", Writer: buf})
		require.NoError(t, err)
		log.Error("must not appear")
		require.Empty(t, buf.Bytes())
	})
}
