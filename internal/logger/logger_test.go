package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{" INFO ", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		require.Equal(t, tt.want, got, tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	log := New(zapcore.WarnLevel)
	require.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	require.True(t, log.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
