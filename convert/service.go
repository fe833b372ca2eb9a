package convert

import (
	"fmt"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/domain"
)

// Places converted amounts are rounded to.
const Places = 4

// Service converts amounts using a single base-relative rate table.
// Implementations are stateless and safe to call from any goroutine.
type Service interface {
	Convert(amount decimal.Decimal, source domain.Currency, target domain.Currency, table domain.RateTable) (decimal.Decimal, error)
	Validate(source domain.Currency, target domain.Currency, table domain.RateTable) bool
}

// service the pure converter
type service struct{}

// NewService constructs a valid Service
func NewService() Service {
	return service{}
}

// Convert computes amount of source expressed in target.
// Only conversions from the table's own base are supported; there is no cross-rate arithmetic.
func (service) Convert(amount decimal.Decimal, source domain.Currency, target domain.Currency, table domain.RateTable) (decimal.Decimal, error) {
	if source == target {
		return amount, nil
	}

	if table.Base() != source {
		return decimal.Decimal{}, fmt.Errorf("convert from [%v] with table [%v]: %w", source, table.Base(), domain.ErrUnsupportedSourceBase)
	}

	rate, ok := table.Lookup(target)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("convert to [%v]: %w", target, domain.ErrUnknownTargetCurrency)
	}

	return rate.Decimal().Mul(amount).Round(Places), nil
}

// Validate reports whether both currencies are known to the table, base included.
func (service) Validate(source domain.Currency, target domain.Currency, table domain.RateTable) bool {
	return table.Quotes(source) && table.Quotes(target)
}
