package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDecimal a rate value that cannot be split into significand and exponent
	ErrMalformedDecimal = errors.New("malformed decimal")

	// ErrUnsupportedSourceBase conversion requested from a currency other than the table base
	ErrUnsupportedSourceBase = errors.New("unsupported source base")

	// ErrUnknownTargetCurrency conversion target not quoted by the table
	ErrUnknownTargetCurrency = errors.New("unknown target currency")

	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrDuplicateCurrency = errors.New("duplicate currency")
	ErrBaseQuoted        = errors.New("base currency quoted against itself")

	// ErrNoData the rate source answered without a body
	ErrNoData = errors.New("no data")
)

// FetchReason classifies why a rate source could not produce a table.
type FetchReason int

const (
	ReasonTransport FetchReason = iota
	ReasonNoData
	ReasonDecode
)

func (r FetchReason) String() string {
	switch r {
	case ReasonTransport:
		return "transport error"
	case ReasonNoData:
		return "no data"
	case ReasonDecode:
		return "decode error"
	}
	return fmt.Sprintf("FetchReason(%d)", int(r))
}

// FetchError a failed attempt to load the rate table for Base.
type FetchError struct {
	Base   Currency
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch [%v]: %v: %v", e.Base, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
