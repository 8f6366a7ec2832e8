package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.jsonl")

	logger, closeFn, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	Event(logger, EventCycleStarted).Str("use_case", "fibonacci").Msg("cycle started")
	Event(logger, EventCycleFinished).Int("attempts", 2).Msg("cycle finished")
	logger.Debug().Msg("filtered out at info level")

	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not JSON: %q", scanner.Text())
		}
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0]["event"] != EventCycleStarted {
		t.Errorf("event[0] = %v, want %s", events[0]["event"], EventCycleStarted)
	}
	if events[1]["attempts"] != float64(2) {
		t.Errorf("attempts = %v, want 2", events[1]["attempts"])
	}
	if _, ok := events[0]["time"]; !ok {
		t.Error("event missing timestamp")
	}
}

func TestNew_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(path, []byte("{\"event\":\"old\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	logger, closeFn, err := New(Options{File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	Event(logger, EventDemoSaved).Msg("saved")
	closeFn()

	data, _ := os.ReadFile(path)
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("got %d lines, want 2 (existing line kept)", lines)
	}
}

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()

	logger.Debug().Str("profile", "code").Msg("completion received")
	if !strings.Contains(buf.String(), "completion received") {
		t.Errorf("console output = %q, want message", buf.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNew_ConsoleLevelFiltersOnlyConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "log.jsonl")

	logger, closeFn, err := New(Options{Level: "info", Console: &buf, ConsoleLevel: "warn", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	Event(logger, EventDemoSaved).Msg("saved quietly")
	logger.Warn().Msg("attempt failed loudly")
	closeFn()

	if strings.Contains(buf.String(), "saved quietly") {
		t.Errorf("info line reached the console: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "attempt failed loudly") {
		t.Errorf("warn line missing from console: %q", buf.String())
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "saved quietly") {
		t.Error("info line missing from the event file")
	}
}
