package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")
	SetLevel("error")
	if L().Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be disabled at error level")
	}
	SetLevel("debug")
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}
}

func TestReplaceRestores(t *testing.T) {
	orig := L()
	restore := Replace(zap.NewNop())
	if L() == orig {
		t.Fatalf("logger not replaced")
	}
	restore()
	if L() != orig {
		t.Fatalf("logger not restored")
	}
}
