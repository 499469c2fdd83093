package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-06-03", true},
		{"2024-06-03T15:04:05Z", true},
		{"1717372800", true},
		{"1717372800000", true},
		{"", false},
		{"yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(want) {
				t.Fatalf("unexpected date %v", got)
			}
		})
	}
}

func TestTradingDaysBetween(t *testing.T) {
	fri := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	tue := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	if got := TradingDaysBetween(fri, tue); got != 2 {
		t.Fatalf("expected 2 trading days, got %d", got)
	}
	if got := TradingDaysBetween(tue, fri); got != 0 {
		t.Fatalf("expected 0 for reversed range, got %d", got)
	}
}

func TestStringHelpers(t *testing.T) {
	if got := ParseIntDefault("7", 5); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := ParseIntDefault("x", 5); got != 5 {
		t.Fatalf("expected default, got %d", got)
	}
	got := SplitList(" QQQ, ,NVDA,")
	if len(got) != 2 || got[0] != "QQQ" || got[1] != "NVDA" {
		t.Fatalf("unexpected split %v", got)
	}
}
