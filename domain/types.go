package domain

import (
	"fmt"
	"strings"
	"time"
)

// Currency a currency code
type Currency string

// ParseCurrency normalises a user supplied currency code. Codes are 3 or 4 ASCII letters.
func ParseCurrency(s string) (Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) < 3 || len(code) > 4 {
		return "", fmt.Errorf("currency %q: %w", s, ErrInvalidCurrency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("currency %q: %w", s, ErrInvalidCurrency)
		}
	}
	return Currency(code), nil
}

// RateTable an immutable snapshot of rates quoted against a single base currency.
// Refreshing never mutates a table, it replaces it.
type RateTable struct {
	// base every rate in the table is relative to
	base Currency

	// updatedAt when the source published the rates
	updatedAt time.Time

	// rates in table order, one per quoted currency, never the base
	rates []Rate

	// index maps a quoted currency to its position in rates
	index map[Currency]int
}

// NewRateTable constructs a valid RateTable. Quoted currencies must be unique and differ from base.
func NewRateTable(base Currency, updatedAt time.Time, rates ...Rate) (RateTable, error) {
	index := make(map[Currency]int, len(rates))
	for i, r := range rates {
		if r.Currency == base {
			return RateTable{}, fmt.Errorf("rate table [%v]: %w", base, ErrBaseQuoted)
		}
		if _, ok := index[r.Currency]; ok {
			return RateTable{}, fmt.Errorf("rate table [%v] currency %v: %w", base, r.Currency, ErrDuplicateCurrency)
		}
		index[r.Currency] = i
	}

	return RateTable{
		base:      base,
		updatedAt: updatedAt,
		rates:     append([]Rate(nil), rates...),
		index:     index,
	}, nil
}

func (t RateTable) Base() Currency {
	return t.base
}

func (t RateTable) UpdatedAt() time.Time {
	return t.updatedAt
}

// Rates returns a copy of the quoted rates in table order.
func (t RateTable) Rates() []Rate {
	return append([]Rate(nil), t.rates...)
}

// Len number of quoted currencies, excluding the base.
func (t RateTable) Len() int {
	return len(t.rates)
}

// Currencies quoted currencies in table order.
func (t RateTable) Currencies() []Currency {
	codes := make([]Currency, 0, len(t.rates))
	for _, r := range t.rates {
		codes = append(codes, r.Currency)
	}
	return codes
}

// Lookup the rate quoted for a currency. The base has no rate of its own.
func (t RateTable) Lookup(c Currency) (Rate, bool) {
	i, ok := t.index[c]
	if !ok {
		return Rate{}, false
	}
	return t.rates[i], true
}

// Quotes reports whether c is the base or one of the quoted currencies.
func (t RateTable) Quotes(c Currency) bool {
	if c == t.base {
		return true
	}
	_, ok := t.index[c]
	return ok
}
