package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"err":     slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFieldsAreStructured(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "info"); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}
	t.Cleanup(func() { _ = InitWriter(io.Discard, "info") })

	Debug("hidden", nil)
	Error("store failed", map[string]any{"error": errors.New("boom"), "id": "face_1"})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "store failed" || entry["error"] != "boom" || entry["id"] != "face_1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
