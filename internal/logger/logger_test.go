package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelsByEnvironment(t *testing.T) {
	prod, err := New("prod")
	if err != nil {
		t.Fatal(err)
	}
	if prod.Core().Enabled(zapcore.InfoLevel) {
		t.Error("prod logger should drop info")
	}
	if !prod.Core().Enabled(zapcore.WarnLevel) {
		t.Error("prod logger should keep warn")
	}

	dev, err := New("dev")
	if err != nil {
		t.Fatal(err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Error("dev logger should keep debug")
	}
}
