package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel).With(String("component", "board"))

	log.Info("refreshed",
		Int("symbols", 5),
		Float("confidence", 0.75),
		Duration("took", 1500*time.Millisecond),
		Strings("ids", []string{"momentum", "buy_hold"}),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	checks := map[string]interface{}{
		"component":  "board",
		"message":    "refreshed",
		"symbols":    float64(5),
		"confidence": 0.75,
		"took":       float64(1500),
		"ids":        "momentum, buy_hold",
		"error":      "boom",
		"level":      "info",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)
	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn output")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing", String("k", "v"))
}
