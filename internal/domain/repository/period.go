package repository

// Period is the length of daily history requested from a price source.
type Period string

const (
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1mo, Period3mo, Period6mo, Period1y, Period2y:
		return true
	default:
		return false
	}
}

// DefaultPeriod is long enough for sma_200.
func DefaultPeriod() Period { return Period1y }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Days is the calendar span of the period.
func (p Period) Days() int {
	switch p {
	case Period1mo:
		return 31
	case Period3mo:
		return 92
	case Period6mo:
		return 183
	case Period2y:
		return 731
	default:
		return 366
	}
}
