package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	l := setup(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("capture", "user_id", "user-1")

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected single json record, got %q: %v", line, err)
	}
	if rec["msg"] != "capture" || rec["user_id"] != "user-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if L() != l {
		t.Fatalf("expected L to return the configured logger")
	}
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, "debug", "text").Debug("tick", "sessions", 2)
	if !strings.Contains(buf.String(), "msg=tick") || !strings.Contains(buf.String(), "sessions=2") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
