package rental

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPayment(t *testing.T) {
	cases := []struct {
		name         string
		gross        int64
		rate         uint32
		landlord     int64
		agent        int64
	}{
		{"no commission", 1000, 0, 1000, 0},
		{"five percent", 1000, 500, 950, 50},
		{"ten percent", 2000, 1000, 1800, 200},
		{"quarter percent", 10000, 250, 9750, 250},
		{"full commission", 1000, 10000, 0, 1000},
		{"floors remainder to landlord", 999, 500, 950, 49},
		{"zero gross", 0, 500, 0, 0},
		// Amounts where the naive gross*rate product exceeds int64.
		{"large gross", 1_000_000_000_000_000_000, 500, 950_000_000_000_000_000, 50_000_000_000_000_000},
		{"max gross full commission", math.MaxInt64, 10_000, 0, math.MaxInt64},
		{"max gross no commission", math.MaxInt64, 0, math.MaxInt64, 0},
		{"max gross five percent", math.MaxInt64, 500, 8_762_203_435_012_037_017, 461_168_601_842_738_790},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			landlord, agent := splitPayment(tc.gross, tc.rate)
			assert.Equal(t, tc.landlord, landlord)
			assert.Equal(t, tc.agent, agent)
		})
	}
}

func TestSplitPaymentConservesGross(t *testing.T) {
	for gross := int64(0); gross <= 10_000; gross += 37 {
		for rate := uint32(0); rate <= 10_000; rate += 113 {
			landlord, agent := splitPayment(gross, rate)
			assert.Equal(t, gross, landlord+agent,
				"gross %d rate %d must split without leakage", gross, rate)
			assert.Equal(t, gross*int64(rate)/10_000, agent)
			assert.GreaterOrEqual(t, landlord, int64(0))
			assert.GreaterOrEqual(t, agent, int64(0))
		}
	}
}
