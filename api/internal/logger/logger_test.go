package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		l := New(tt.level, "json")
		assert.True(t, l.Core().Enabled(tt.want), tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tt.want-1), tt.level)
		}
	}
}

func TestNewNop(t *testing.T) {
	assert.NotNil(t, NewNop())
}
