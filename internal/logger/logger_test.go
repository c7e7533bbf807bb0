package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gamepay.log")
	l, err := New(Config{Level: "debug", Format: "json", File: file, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hello", zap.String("order_no", "ord_1"))
	_ = l.Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"order_no":"ord_1"`) {
		t.Fatalf("log line missing field: %s", data)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != zap.L() {
		t.Error("empty context should fall back to the global logger")
	}
	l := zap.NewNop()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("logger not recovered from context")
	}
}
