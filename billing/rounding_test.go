package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCashRound(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{841, 840}, // 8.41 -> 8.40
		{842, 840},
		{843, 845}, // 8.43 -> 8.45
		{844, 845},
		{846, 845}, // 8.46 -> 8.45
		{847, 845},
		{848, 850}, // 8.48 -> 8.50
		{849, 850},
		{840, 840}, // already a coin denomination
		{845, 845},
		{2900, 2900},
		{0, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CashRound(tc.in), "CashRound(%d)", tc.in)
	}
}

func TestRoundToNearestFive(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{841, 840},
		{842, 840},
		{843, 845},
		{844, 845},
		{845, 845},
		{846, 845},
		{847, 845},
		{848, 850},
		{840, 840},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundToNearestFive(tc.in), "RoundToNearestFive(%d)", tc.in)
	}
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(843), ToCents(8.43))
	assert.Equal(t, int64(1000), ToCents(10.00))
	assert.InDelta(t, 8.43, FromCents(843), 0.0001)
}
