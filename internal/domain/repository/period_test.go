package repository

import "testing"

func TestNormalizePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
	}{
		{"", Period1y},
		{"6mo", Period6mo},
		{"2y", Period2y},
		{"5d", Period1y},
	}
	for _, c := range cases {
		if got := NormalizePeriod(c.in); got != c.want {
			t.Fatalf("NormalizePeriod(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPeriodDays(t *testing.T) {
	if Period1y.Days() < 365 {
		t.Fatalf("1y must cover a year, got %d days", Period1y.Days())
	}
	if Period1mo.Days() >= Period3mo.Days() {
		t.Fatalf("periods must grow")
	}
}
