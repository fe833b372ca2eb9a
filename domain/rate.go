package domain

import (
	"fmt"
	"github.com/shopspring/decimal"
	"math"
	"math/big"
	"strconv"
)

// Rate an exchange rate held as significand × 10^-exponent, so a published decimal literal
// is reproduced exactly.
type Rate struct {
	// Currency the quoted currency
	Currency Currency

	Significand int64

	// Exponent number of fractional digits retained, never negative
	Exponent int32
}

// NewRate decomposes a decimal literal such as "0.90234" into a Rate.
//
// The exponent is the number of fractional digits as written: "123.10" keeps both digits.
// The single exception is a fractional part of exactly "0", which collapses to exponent 0.
func NewRate(code Currency, literal string) (Rate, error) {
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return Rate{}, fmt.Errorf("rate %v %q: %w", code, literal, ErrMalformedDecimal)
	}

	coefficient := d.Coefficient()
	exponent := -d.Exponent()

	switch {
	case exponent < 0:
		// 1.5e3 and friends: fold the scale into the significand
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exponent)), nil)
		coefficient.Mul(coefficient, scale)
		exponent = 0
	case exponent == 1 && new(big.Int).Rem(coefficient, big.NewInt(10)).Sign() == 0:
		coefficient.Quo(coefficient, big.NewInt(10))
		exponent = 0
	}

	if !coefficient.IsInt64() {
		return Rate{}, fmt.Errorf("rate %v %q overflows: %w", code, literal, ErrMalformedDecimal)
	}

	return Rate{
		Currency:    code,
		Significand: coefficient.Int64(),
		Exponent:    exponent,
	}, nil
}

// NewRateFromFloat renders v as its shortest round-trip decimal and decomposes that literal.
// NaN and infinities are rejected.
func NewRateFromFloat(code Currency, v float64) (Rate, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Rate{}, fmt.Errorf("rate %v %v: %w", code, v, ErrMalformedDecimal)
	}
	return NewRate(code, strconv.FormatFloat(v, 'f', -1, 64))
}

// Decimal the exact value of the rate.
func (r Rate) Decimal() decimal.Decimal {
	return decimal.New(r.Significand, -r.Exponent)
}

func (r Rate) String() string {
	return r.Decimal().StringFixed(r.Exponent)
}
