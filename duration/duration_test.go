package duration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"30s", 30_000},
		{"5m", 5 * 60_000},
		{"1h", 3_600_000},
		{"1d", 86_400_000},
		{"0s", 0},
		{"500ms", 500},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-5s", "5.5s", "5x", "s5", "5"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidDuration, in)
	}
}

// TestRoundTrip verifies the testable-properties §8.3 duration round-trip
// law for the canonical, non-overlapping N ranges per unit (seconds and
// minutes under 60, hours under 24, days unbounded) where no bracket
// boundary is crossed by Parse->Format.
func TestRoundTrip(t *testing.T) {
	for n := 1; n <= 59; n++ {
		for _, unit := range []string{"s", "m"} {
			s := itoa(n) + unit
			ms, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, s, Format(ms), s)
		}
	}
	for n := 1; n <= 23; n++ {
		s := itoa(n) + "h"
		ms, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, Format(ms), s)
	}
	for n := 1; n <= 10000; n++ {
		s := itoa(n) + "d"
		ms, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, Format(ms), s)
	}
}

func itoa(n int) string {
	return fmtInt(n)
}

func fmtInt(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestToGoDuration(t *testing.T) {
	assert.Equal(t, int64(5000), ToGoDuration(5000).Milliseconds())
}
