package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace visible = %v, want %v", got, tt.logAtTrace)
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestNewEventLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "info")
	if el != nil {
		t.Fatal("expected nil EventLogger at info level")
	}

	// nil logger is usable
	el.Log(map[string]any{"day": 1})
	el.Close()

	if _, err := os.Stat(filepath.Join(dir, EventFile)); err == nil {
		t.Errorf("%s should not exist at info level", EventFile)
	}
}

func TestEventLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	if el == nil {
		t.Fatal("expected EventLogger at debug level")
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	el.now = func() time.Time { return fixed }

	event := map[string]any{"event": "step", "day": 3.0, "strength": 0.55}
	el.Log(event)
	el.Log(map[string]any{"event": "load"})
	el.Close()

	if _, ok := event["time"]; ok {
		t.Error("Log mutated the caller's map")
	}

	lines := readLines(t, filepath.Join(dir, EventFile))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if first["event"] != "step" || first["day"] != 3.0 {
		t.Errorf("unexpected event: %v", first)
	}
	if first["time"] != fixed.Format(time.RFC3339Nano) {
		t.Errorf("time = %v, want %v", first["time"], fixed.Format(time.RFC3339Nano))
	}
}

func TestEventLogger_ConcurrentAndAfterClose(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "trace")
	if el == nil {
		t.Fatal("expected EventLogger at trace level")
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el.Log(map[string]any{"replicate": i})
		}()
	}
	wg.Wait()
	el.Close()
	el.Log(map[string]any{"dropped": true})
	el.Close()

	if got := len(readLines(t, filepath.Join(dir, EventFile))); got != 20 {
		t.Errorf("got %d lines, want 20", got)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
