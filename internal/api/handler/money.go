package handler

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrTooManyDecimalPlaces rejects amounts finer than the minor unit.
var ErrTooManyDecimalPlaces = errors.New("amount has more than two decimal places")

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ParseAmount converts a decimal money string ("60.00") into minor units
// (pence). All engine arithmetic is integer minor units; this conversion is
// the only place decimal strings are interpreted.
func ParseAmount(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}

	pence := d.Mul(minorUnitsPerMajor)
	if !pence.IsInteger() {
		return 0, ErrTooManyDecimalPlaces
	}
	return pence.IntPart(), nil
}

// FormatAmount renders minor units as a decimal money string with two
// decimal places.
func FormatAmount(pence int64) string {
	return decimal.NewFromInt(pence).Div(minorUnitsPerMajor).StringFixed(2)
}
