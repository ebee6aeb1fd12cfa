package sui

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MistPerSUI is the number of MIST in one SUI.
const MistPerSUI = 1_000_000_000

// SUICoinType is the native coin type.
const SUICoinType = "0x2::sui::SUI"

var (
	ErrInvalidAmount  = errors.New("amount is not a valid number")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountOverflow = errors.New("amount does not fit in 64 bits")
)

var mistScale = decimal.New(1, 9)

// Bounds on accepted input. Scientific notation is allowed, but exponents
// outside this window would make the scaling below arbitrarily expensive.
const (
	maxAmountLength   = 64
	minAmountExponent = -30
	maxAmountExponent = 20
)

// ParseSUI converts a decimal SUI amount into MIST, truncating anything
// below one MIST.
func ParseSUI(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLength {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return DecimalToMist(d)
}

// DecimalToMist converts a SUI amount to MIST as floor(d * 1e9).
func DecimalToMist(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if d.IsZero() {
		return 0, nil
	}
	switch exp := d.Exponent(); {
	case exp > maxAmountExponent:
		return 0, ErrAmountOverflow
	case exp < minAmountExponent:
		return 0, fmt.Errorf("%w: too many decimal places", ErrInvalidAmount)
	}
	mist := d.Mul(mistScale).Floor().BigInt()
	if !mist.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return mist.Uint64(), nil
}

// MistToDecimal converts MIST into a SUI decimal.
func MistToDecimal(mist uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(mist), 0).Div(mistScale)
}

// FormatSUI renders a MIST amount in SUI with a fixed number of decimal
// places, e.g. 2500000000 at 4 places is "2.5000".
func FormatSUI(mist uint64, places int32) string {
	return MistToDecimal(mist).StringFixed(places)
}

// MulMist multiplies two MIST quantities and reports overflow.
func MulMist(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrAmountOverflow
	}
	return a * b, nil
}
