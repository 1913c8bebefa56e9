// Package moneyx holds the shared decimal helpers used to turn raw
// blockchain integers into exact decimal amounts. Every monetary or amount
// computation in this module goes through decimal.Decimal; none of it
// touches float32/float64.
package moneyx

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiPerEther is 10^18, the native-currency smallest-unit divisor.
var WeiPerEther = decimal.New(1, 18)

// NativeAmount converts a wei-denominated integer (arbitrary precision) to
// its decimal representation in whole native-currency units.
func NativeAmount(valueMinorUnits *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(valueMinorUnits, 0).DivRound(WeiPerEther, 36)
}

// TokenAmount converts a raw token integer to decimal units given an
// optional number of decimals. When decimals is unknown, the raw integer is
// returned as-is per spec (callers without decimals cannot meaningfully
// scale it).
func TokenAmount(valueRaw *big.Int, decimals *int) decimal.Decimal {
	amount := decimal.NewFromBigInt(valueRaw, 0)
	if decimals == nil {
		return amount
	}
	divisor := decimal.New(1, int32(*decimals))
	return amount.DivRound(divisor, 36)
}

// USDValue computes amount * price in exact decimal arithmetic.
func USDValue(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Mul(price)
}
