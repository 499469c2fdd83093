package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiterAllow(t *testing.T) {
	l := New(1, 2)
	now := time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys must not share a bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestLimiterSweepsIdleKeys(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")
	if _, ok := l.m["old"]; ok {
		t.Fatal("idle key should have been swept")
	}
}

func TestLimiterMiddleware(t *testing.T) {
	e := echo.New()
	l := New(0.001, 1)
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", codes[0])
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", codes[1])
	}
}
