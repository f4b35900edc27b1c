// Package duration parses and formats the compact "30s/5m/1h/1d" duration
// strings used throughout agentcore configuration (hook timeouts, step
// timeouts, schedule delays).
package duration

import (
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidDuration is returned when a string does not match the
// {non-negative integer}{ms|s|m|h|d} grammar.
var ErrInvalidDuration = fmt.Errorf("duration: invalid format, expected Ns/Nm/Nh/Nd")

const (
	unitMillisecond = "ms"
	unitSecond      = "s"
	unitMinute      = "m"
	unitHour        = "h"
	unitDay         = "d"
)

var unitMillis = map[string]int64{
	unitMillisecond: 1,
	unitSecond:      1000,
	unitMinute:      60 * 1000,
	unitHour:        60 * 60 * 1000,
	unitDay:         24 * 60 * 60 * 1000,
}

// Parse converts a duration string such as "500ms", "30s", "5m", "1h", or
// "1d" into milliseconds. The numeric component must be a non-negative
// integer (so "0s" is accepted); any other
// input (empty string, negative, fractional, unknown unit, trailing
// garbage) returns ErrInvalidDuration.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidDuration
	}

	unit, unitLen := splitUnit(s)
	if unit == "" {
		return 0, ErrInvalidDuration
	}

	numPart := s[:len(s)-unitLen]
	if numPart == "" {
		return 0, ErrInvalidDuration
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidDuration
	}

	perUnit, ok := unitMillis[unit]
	if !ok {
		return 0, ErrInvalidDuration
	}

	ms, overflow := mulOverflows(n, perUnit)
	if overflow {
		return 0, fmt.Errorf("%w: overflows millisecond precision", ErrInvalidDuration)
	}
	return ms, nil
}

// splitUnit recognizes the "ms" two-character unit before falling back to
// the single-character units, since "ms" would otherwise be mistaken for
// the "s" unit with a trailing "m" digit.
func splitUnit(s string) (string, int) {
	if len(s) >= 2 && s[len(s)-2:] == unitMillisecond {
		return unitMillisecond, 2
	}
	if len(s) >= 1 {
		last := string(s[len(s)-1])
		if _, ok := unitMillis[last]; ok {
			return last, 1
		}
	}
	return "", 0
}

func mulOverflows(n, perUnit int64) (int64, bool) {
	if n == 0 || perUnit == 0 {
		return 0, false
	}
	result := n * perUnit
	if result/perUnit != n {
		return 0, true
	}
	return result, false
}

// MustParse is like Parse but panics on error. Intended for use with
// compile-time-known constant duration strings (e.g., default config
// values), not for parsing caller input.
func MustParse(s string) int64 {
	ms, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ms
}

// Format picks the coarsest unit whose magnitude bracket ms falls into:
// sub-second values format as milliseconds, sub-minute as seconds,
// sub-hour as minutes, sub-day as hours, everything else as days. The
// quotient is exact for any ms produced by Parse on a canonical
// {1..59}s / {1..59}m / {1..23}h / {1..N}d input; values that straddle a
// bracket boundary (e.g. parsing "90s") are rounded to the nearest whole
// unit in the bracket they fall into.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	switch {
	case ms < unitMillis[unitSecond]:
		return fmt.Sprintf("%d%s", ms, unitMillisecond)
	case ms < unitMillis[unitMinute]:
		return fmt.Sprintf("%d%s", roundDiv(ms, unitMillis[unitSecond]), unitSecond)
	case ms < unitMillis[unitHour]:
		return fmt.Sprintf("%d%s", roundDiv(ms, unitMillis[unitMinute]), unitMinute)
	case ms < unitMillis[unitDay]:
		return fmt.Sprintf("%d%s", roundDiv(ms, unitMillis[unitHour]), unitHour)
	default:
		return fmt.Sprintf("%d%s", roundDiv(ms, unitMillis[unitDay]), unitDay)
	}
}

func roundDiv(a, b int64) int64 {
	return (a + b/2) / b
}

// ToGoDuration converts a parsed millisecond count into a time.Duration for
// interop with stdlib timers and context deadlines.
func ToGoDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
