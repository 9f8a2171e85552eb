package pkg

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
			if !Enabled(tt.level) {
				t.Errorf("Enabled(%v) = false, want true", tt.level)
			}
		})
	}
}

func TestEnabled_BelowLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	SetLogLevel(zapcore.WarnLevel)
	if Enabled(zapcore.DebugLevel) {
		t.Error("Enabled(debug) = true at warn level")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, zapcore.InfoLevel)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("log output missing message: %s", buf.String())
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, zapcore.InfoLevel)
	if logger == nil {
		t.Fatal("NewJSONLogger returned nil")
	}

	logger.Info("test message")
	output := buf.String()
	if !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", output)
	}
}

func TestLogDebug(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewJSONLogger(&buf, zapcore.DebugLevel))

	LogDebug(ComponentRing, "debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("debug log missing message: %s", output)
	}
	if !strings.Contains(output, `"component":"ring"`) {
		t.Errorf("debug log missing component: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Errorf("debug log missing field: %s", output)
	}
}

func TestLogInfo(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewJSONLogger(&buf, zapcore.InfoLevel))

	LogInfo(ComponentHost, "info message")
	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("info log missing message: %s", output)
	}
	if !strings.Contains(output, `"component":"host"`) {
		t.Errorf("info log missing component: %s", output)
	}
}

func TestLogWarn(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewLogger(&buf, zapcore.InfoLevel))

	LogWarn(ComponentDispatch, "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("warn log missing message: %s", buf.String())
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewLogger(&buf, zapcore.InfoLevel))

	LogError(ComponentHAL, "error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("error log missing message: %s", buf.String())
	}
}

func TestLogFiltered(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewLogger(&buf, zapcore.WarnLevel))

	LogDebug(ComponentQueue, "hidden")
	LogInfo(ComponentQueue, "hidden")
	if buf.Len() != 0 {
		t.Errorf("messages below level were logged: %s", buf.String())
	}
}
