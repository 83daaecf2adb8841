package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "console", false},
		{"debug", "json", false},
		{"warn", "", false},
		{"loud", "console", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		l, err := New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q) err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err == nil && l == nil {
			t.Errorf("New(%q, %q) returned nil logger", tt.level, tt.format)
		}
	}

	l, err := New("warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error disabled at warn level")
	}
}

func TestSetLogger(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger() = nil before SetLogger")
	}
	prev := Logger()
	defer SetLogger(prev)

	l := zap.NewExample()
	SetLogger(l)
	if Logger() != l {
		t.Error("Logger() did not return the logger passed to SetLogger")
	}
}
