package tx

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NanoPerMCM is the number of nanoMCM in one MCM.
const NanoPerMCM = 1_000_000_000

// amountExp is the decimal exponent of one nanoMCM.
const amountExp = -9

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// FormatAmount renders a nanoMCM amount as a decimal MCM string with
// trailing zeros trimmed, e.g. 1500000000 -> "1.5".
func FormatAmount(nano uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(nano), amountExp).String()
}

// ParseAmount parses a decimal MCM string into nanoMCM. More than nine
// fractional digits, negative values and overflow are rejected.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidAmountFormat, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmountFormat, s)
	}

	nano := d.Shift(-amountExp)
	if !nano.Equal(nano.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than 9 decimal places", ErrInvalidAmountFormat, s)
	}
	if nano.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s overflows", ErrInvalidAmountFormat, s)
	}
	return nano.BigInt().Uint64(), nil
}
