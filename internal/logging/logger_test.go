package logging

import (
	"fmt"
	"log/slog"
	"testing"
)

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	if rb.Count() != 3 {
		t.Fatalf("expected count 3, got %d", rb.Count())
	}

	entries := rb.ReadAll()
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, w := range want {
		if entries[i].Message != w {
			t.Errorf("entry %d: expected %q, got %q", i, w, entries[i].Message)
		}
	}
}

func TestBufferHandlerExtractsModule(t *testing.T) {
	rb := NewRingBuffer(10)
	levelVar := &slog.LevelVar{}
	handler := NewBufferHandler(rb, levelVar, nil)
	logger := slog.New(handler).With("module", "trigger")

	logger.Info("pair completed", "queue_size", 4)

	entries := rb.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Module != "trigger" {
		t.Errorf("expected module trigger, got %q", entries[0].Module)
	}
	if entries[0].Level != "info" {
		t.Errorf("expected level info, got %q", entries[0].Level)
	}
	if entries[0].Attributes["queue_size"] != int64(4) {
		t.Errorf("expected queue_size 4, got %v", entries[0].Attributes["queue_size"])
	}
}

func TestBufferHandlerRespectsLevel(t *testing.T) {
	rb := NewRingBuffer(10)
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(NewBufferHandler(rb, levelVar, nil))

	logger.Debug("ignored")
	logger.Info("also ignored")
	logger.Warn("kept")

	if rb.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rb.Count())
	}
	if rb.ReadAll()[0].Message != "kept" {
		t.Errorf("unexpected entry %q", rb.ReadAll()[0].Message)
	}
}

func TestBufferHandlerCallback(t *testing.T) {
	rb := NewRingBuffer(10)
	levelVar := &slog.LevelVar{}

	var got []LogEntry
	handler := NewBufferHandler(rb, levelVar, func(e LogEntry) {
		got = append(got, e)
	})
	slog.New(handler).Info("hello")

	if len(got) != 1 || got[0].Message != "hello" {
		t.Fatalf("callback not invoked, got %v", got)
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("combo")
	b := GetLogger("combo")
	if a != b {
		t.Error("expected the same logger instance for a module")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.in, slog.LevelInfo); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
