package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogger_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentEntries,
		Handler:   NewHandler(&buf, slog.LevelInfo, "json"),
	})

	logger.Info("hello", FieldEntryID, "abc")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentEntries {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentEntries)
	}
	if rec[FieldEntryID] != "abc" {
		t.Errorf("entry_id = %v, want abc", rec[FieldEntryID])
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: NewHandler(&buf, slog.LevelWarn, "text")})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be written")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: NewHandler(&buf, slog.LevelInfo, "text")})

	t.Run("default when missing", func(t *testing.T) {
		if got := FromContext(context.Background()); got.Component() != "unknown" {
			t.Errorf("Component() = %q, want unknown", got.Component())
		}
	})

	t.Run("context carries logger", func(t *testing.T) {
		ctx := NewContext(context.Background(), logger.WithComponent(ComponentHTTP))
		if got := FromContext(ctx); got.Component() != ComponentHTTP {
			t.Errorf("Component() = %q, want %s", got.Component(), ComponentHTTP)
		}
	})
}

func TestStructuredLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, slog.LevelInfo, "json")})

	NewStructuredLogger(logger).LogError(context.Background(), "Failed to list time entries",
		errors.New("disk on fire"), ComponentEntries, OpList, FieldEntryID, "abc")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]any{
		FieldError:     "disk on fire",
		FieldErrorType: ErrorTypeInternal,
		FieldOperation: OpList,
		FieldComponent: ComponentEntries,
		FieldEntryID:   "abc",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		format string
		want   string
	}{
		{"auto", "json"}, // a buffer is never a terminal
		{"AUTO", "json"},
		{"text", "text"},
		{"JSON", "json"},
	}
	for _, tt := range tests {
		if got := ResolveFormat(&buf, tt.format); got != tt.want {
			t.Errorf("ResolveFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}

	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, slog.LevelInfo, "auto")})
	logger.Info("hello")
	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("auto format on a buffer should log JSON, got %q", buf.String())
	}
}
