package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseMinor converts a decimal amount string like "100.00" into minor
// units (cents). At most two decimal places are accepted; the conversion
// never passes through binary floats.
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return 0, ErrTooManyDecimals
	}
	minor := amount.Shift(2)
	if !minor.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	whole := value / 100
	frac := value % 100
	formatted := fmt.Sprintf("%d.%02d", whole, frac)
	if negative {
		return "-" + formatted
	}
	return formatted
}
