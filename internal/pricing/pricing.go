// internal/pricing/pricing.go

// Package pricing holds the pure price math for pool analysis. All
// functions are deterministic and side-effect free so the sniper's
// decisions can be tested without any chain access.
package pricing

import (
	"errors"
	"math"
	"math/big"
)

// ErrNoTokensReceived is returned when a buy settles without delivering
// any tokens, which makes a realized price undefined.
var ErrNoTokensReceived = errors.New("no tokens received from buy")

// ConstantProduct computes K = floor(quote*base / 10^(qd+bd)) with
// unbounded integer math. Reserves are in smallest units; the result is
// the product of the human-unit reserves, truncated.
func ConstantProduct(quoteReserve, baseReserve uint64, quoteDecimals, baseDecimals uint8) *big.Int {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(quoteReserve),
		new(big.Int).SetUint64(baseReserve),
	)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quoteDecimals)+int64(baseDecimals)), nil)
	return product.Quo(product, scale)
}

// LaunchPrice computes V, the initial quote-per-base price in human units.
// A zero base reserve yields +Inf; callers treat that pool as unpriceable.
func LaunchPrice(quoteReserve, baseReserve uint64, quoteDecimals, baseDecimals uint8) float64 {
	quote := float64(quoteReserve) / math.Pow10(int(quoteDecimals))
	base := float64(baseReserve) / math.Pow10(int(baseDecimals))
	return quote / base
}

// LivePrice approximates the current quote-per-base price from the quote
// vault balance alone: price = quote² / K. K at or below zero means the
// pool never had a usable constant product; the price is reported as 0 so
// the watch loop keeps waiting instead of acting on garbage.
func LivePrice(quoteReserveRaw uint64, quoteDecimals uint8, k float64) float64 {
	if k <= 0 {
		return 0
	}
	quote := float64(quoteReserveRaw) / math.Pow10(int(quoteDecimals))
	return quote * quote / k
}

// RealizedBuyPrice computes the effective entry price from what the buy
// actually spent and delivered, both in human units.
func RealizedBuyPrice(quoteSpent, baseReceived float64) (float64, error) {
	if baseReceived <= 0 {
		return 0, ErrNoTokensReceived
	}
	return quoteSpent / baseReceived, nil
}

// SellTarget returns the price at which the position should be exited,
// targetPercent above the entry price.
func SellTarget(buyPrice, targetPercent float64) float64 {
	return buyPrice * (1 + targetPercent/100)
}
