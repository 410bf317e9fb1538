// internal/pricing/pricing_test.go
package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantProduct(t *testing.T) {
	tests := []struct {
		name          string
		quoteReserve  uint64
		baseReserve   uint64
		quoteDecimals uint8
		baseDecimals  uint8
		expected      string
	}{
		{
			name:          "two SOL against thousand tokens",
			quoteReserve:  2_000_000_000,
			baseReserve:   1_000_000_000,
			quoteDecimals: 9,
			baseDecimals:  6,
			expected:      "2000",
		},
		{
			name:          "truncates toward zero",
			quoteReserve:  1_500_000_000,
			baseReserve:   1,
			quoteDecimals: 9,
			baseDecimals:  0,
			expected:      "1",
		},
		{
			name:          "zero reserves",
			quoteReserve:  0,
			baseReserve:   5_000_000,
			quoteDecimals: 9,
			baseDecimals:  6,
			expected:      "0",
		},
		{
			name:          "large reserves stay exact",
			quoteReserve:  18_000_000_000_000_000_000,
			baseReserve:   18_000_000_000_000_000_000,
			quoteDecimals: 9,
			baseDecimals:  9,
			expected:      "324000000000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := ConstantProduct(tt.quoteReserve, tt.baseReserve, tt.quoteDecimals, tt.baseDecimals)
			assert.Equal(t, tt.expected, k.String())
		})
	}
}

func TestConstantProductMatchesRationalMath(t *testing.T) {
	quote := uint64(123_456_789_000)
	base := uint64(987_654_321_000)

	k := ConstantProduct(quote, base, 9, 6)

	product := new(big.Int).Mul(new(big.Int).SetUint64(quote), new(big.Int).SetUint64(base))
	expected := new(big.Rat).SetFrac(product, big.NewInt(1_000_000_000_000_000))
	floor := new(big.Int).Quo(expected.Num(), expected.Denom())
	assert.Equal(t, 0, k.Cmp(floor))
}

func TestLaunchPrice(t *testing.T) {
	// 2 SOL against 1000 tokens: 0.002 SOL per token.
	v := LaunchPrice(2_000_000_000, 1_000_000_000, 9, 6)
	assert.InDelta(t, 0.002, v, 1e-12)
}

func TestLivePrice(t *testing.T) {
	tests := []struct {
		name     string
		lamports uint64
		decimals uint8
		k        float64
		expected float64
	}{
		{
			name:     "price at launch reserves",
			lamports: 2_000_000_000,
			decimals: 9,
			k:        2000,
			expected: 0.002,
		},
		{
			name:     "quote doubled quadruples price",
			lamports: 4_000_000_000,
			decimals: 9,
			k:        2000,
			expected: 0.008,
		},
		{
			name:     "zero constant product",
			lamports: 4_000_000_000,
			decimals: 9,
			k:        0,
			expected: 0,
		},
		{
			name:     "negative constant product",
			lamports: 4_000_000_000,
			decimals: 9,
			k:        -1,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, LivePrice(tt.lamports, tt.decimals, tt.k), 1e-12)
		})
	}
}

func TestRealizedBuyPrice(t *testing.T) {
	price, err := RealizedBuyPrice(0.5, 250)
	require.NoError(t, err)
	assert.InDelta(t, 0.002, price, 1e-12)

	_, err = RealizedBuyPrice(0.5, 0)
	assert.ErrorIs(t, err, ErrNoTokensReceived)

	_, err = RealizedBuyPrice(0.5, -1)
	assert.ErrorIs(t, err, ErrNoTokensReceived)
}

func TestSellTarget(t *testing.T) {
	assert.InDelta(t, 0.003, SellTarget(0.002, 50), 1e-12)
	assert.InDelta(t, 0.002, SellTarget(0.002, 0), 1e-12)
	assert.InDelta(t, 0.004, SellTarget(0.002, 100), 1e-12)
}
