package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"status":"ok"}` {
		t.Errorf("body = %q", body)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		for _, format := range []string{"text", "json"} {
			l := newLogger(tt.level, format)
			if !l.Enabled(context.Background(), tt.want) {
				t.Errorf("newLogger(%q, %q) should enable %s", tt.level, format, tt.want)
			}
			if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-1) {
				t.Errorf("newLogger(%q, %q) should not enable below %s", tt.level, format, tt.want)
			}
		}
	}
}
