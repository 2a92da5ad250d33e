// Package currency provides exact atomic-unit arithmetic for USDC amounts.
//
// All on-chain comparisons and fee math run on integers. Decimal values
// appear only at the display boundary, where output is truncated to the
// token's six decimal places so the engine never shows more than is actually
// transferable.
package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// USDCDecimals is the minor-unit precision of USDC on both chains.
const USDCDecimals = 6

var bpsDenominator = big.NewInt(10_000)

// DisplayToAtomic converts a human-readable decimal amount to atomic units.
// Sub-atomic precision rounds to the nearest atomic unit (0.0000005 -> 1,
// 0.0000001 -> 0). Negative amounts are rejected.
func DisplayToAtomic(display string) (uint64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", display, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", display)
	}
	atomic := d.Shift(USDCDecimals).Round(0)
	bi := atomic.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows atomic units", display)
	}
	return bi.Uint64(), nil
}

// AtomicToDisplay renders atomic units as a fixed six-decimal string,
// truncating rather than rounding.
func AtomicToDisplay(raw uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -USDCDecimals)
	return d.Truncate(USDCDecimals).StringFixed(USDCDecimals)
}

// SplitFee divides raw between platform and author: the platform fee is
// floor(raw * feeBps / 10000), the author gets the remainder. The two parts
// always sum to raw exactly.
func SplitFee(raw uint64, feeBps uint32) (platformFee, authorAmount uint64) {
	fee := new(big.Int).SetUint64(raw)
	fee.Mul(fee, big.NewInt(int64(feeBps)))
	fee.Quo(fee, bpsDenominator)
	platformFee = fee.Uint64()
	return platformFee, raw - platformFee
}
