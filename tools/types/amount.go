package types

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotANumber        = errors.New("not a decimal number")
	ErrPrecisionOverflow = errors.New("more fractional digits than the token supports")
	ErrOutOfRange        = errors.New("value does not fit in uint256")
)

var (
	decimalPattern = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
	integerPattern = regexp.MustCompile(`^\d+$`)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// ParseAmount parses a plain decimal string. Exponent notation is rejected.
func ParseAmount(amount string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(amount)
	if !decimalPattern.MatchString(trimmed) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}
	return value, nil
}

// ScaleAmount multiplies value by 10^decimals. Fractional digits beyond
// decimals are rejected rather than rounded, and results whose magnitude
// exceeds uint256 fail with ErrOutOfRange.
func ScaleAmount(value decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrPrecisionOverflow, value.String(), decimals)
	}
	atomic := scaled.BigInt()
	if new(big.Int).Abs(atomic).Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s scaled by %d decimals", ErrOutOfRange, value.String(), decimals)
	}
	return atomic, nil
}

// ToAtomicUnits converts a human decimal string into integer units scaled by
// 10^decimals ("2.5", 18 -> 2500000000000000000).
func ToAtomicUnits(amount string, decimals uint8) (*big.Int, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return ScaleAmount(value, decimals)
}

// FromAtomicUnits formats integer units as a decimal string with trailing
// zeros trimmed (1500000000000000000, 18 -> "1.5").
func FromAtomicUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// ParseUint256 parses a non-negative base-10 integer below 2^256.
func ParseUint256(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if !integerPattern.MatchString(trimmed) {
		return nil, fmt.Errorf("%w: %q is not a non-negative integer", ErrNotANumber, value)
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotANumber, value)
	}
	if parsed.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, value)
	}
	return parsed, nil
}
