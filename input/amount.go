// Package input turns amount text typed by the user into values the board can use.
package input

import (
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
)

// Separator the only accepted decimal separator
const Separator = '.'

var (
	ErrNegativeValue = errors.New("negative value")
	ErrInvalidNumber = errors.New("invalid number")
)

// Validate reports whether text is acceptable as in-progress amount input:
// digits with at most one decimal separator and no sign. Empty text is acceptable.
func Validate(text string) bool {
	separators := 0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
		case r == Separator:
			separators++
			if separators > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Parse converts amount text into a non-negative decimal.
func Parse(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "-") {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", text, ErrNegativeValue)
	}
	if text == "" || text == string(Separator) || !Validate(text) {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", text, ErrInvalidNumber)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", text, ErrInvalidNumber)
	}
	return d, nil
}

// AmountOrZero parses text, degrading anything unparseable to zero.
func AmountOrZero(text string) decimal.Decimal {
	d, err := Parse(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}
