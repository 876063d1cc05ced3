package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestZerologAdapterFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewLogger(&buf, "halo", true)

	log.Debug("term rebuilt",
		String("term", "h_m"),
		Int("points", 50),
		Float64("k_max", 100),
		Duration("elapsed", 1500*time.Millisecond),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	tests := []struct {
		key  string
		want any
	}{
		{"component", "halo"},
		{"level", "debug"},
		{"message", "term rebuilt"},
		{"term", "h_m"},
		{"points", float64(50)},
		{"k_max", float64(100)},
	}
	for _, tt := range tests {
		if e[tt.key] != tt.want {
			t.Errorf("field %s = %v, want %v", tt.key, e[tt.key], tt.want)
		}
	}
	if _, ok := e["elapsed"]; !ok {
		t.Error("duration field missing")
	}
}

func TestZerologAdapterLevels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewLogger(&buf, "halo", false)

	log.Debug("hidden")
	log.Info("shown")
	log.Error("failed", errors.New("boom"), String("term", "pp_gg"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries without debug, got %d: %s", len(entries), buf.String())
	}
	if entries[1]["error"] != "boom" || entries[1]["term"] != "pp_gg" {
		t.Errorf("unexpected error entry %v", entries[1])
	}
}

func TestWithAndNop(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	child := NewLogger(&buf, "halo", false).With(String("model", "exclusion"))
	child.Info("evaluated")
	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["model"] != "exclusion" {
		t.Errorf("child logger lost its fields: %v", entries)
	}

	var _ Logger = NewNopLogger()
	NewNopLogger().Error("discarded", errors.New("ignored"))
}
