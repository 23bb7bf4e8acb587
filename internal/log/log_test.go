package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentHTTP, Output: &buf})
	l.WithComponent(ComponentListing).Info("hello", FieldKind, "products")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentListing || rec[FieldKind] != "products" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Output: &buf, Component: ComponentApp})
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("component = %q", got.Component())
	}
	l := New(Config{Component: ComponentWorker, Output: &bytes.Buffer{}})
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatal("logger not found in context")
	}
}

func TestStructuredLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	r := httptest.NewRequest("GET", "/api/products?q=lamp", nil)
	sl.LogHTTPEnd(context.Background(), r, 404, 12, "10.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentStorage, OpCreate, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first, second map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &first)
	_ = json.Unmarshal([]byte(lines[1]), &second)
	if first["level"] != "WARN" || first[FieldQuery] != "q=lamp" {
		t.Fatalf("unexpected http line: %v", first)
	}
	if second[FieldError] != "bad" || second[FieldComponent] != ComponentStorage {
		t.Fatalf("unexpected error line: %v", second)
	}
}
