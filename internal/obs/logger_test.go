package obs

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		l, err := NewLogger(LogConfig{Level: tt.level, App: "gotoken-test"})
		if err != nil {
			t.Fatalf("NewLogger(%q) failed: %v", tt.level, err)
		}
		if !l.Core().Enabled(tt.want) {
			t.Fatalf("level %q: expected %v enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Fatalf("level %q: expected %v disabled", tt.level, tt.want-1)
		}
	}
}

func TestNewLoggerPretty(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "debug", Pretty: true, App: "gotoken-test", Env: "dev", Version: "v0"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug enabled")
	}
}
