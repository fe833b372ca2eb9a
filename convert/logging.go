package convert

import (
	"github.com/go-kit/log"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/domain"
	"time"
)

// loggingService decorates a convert.Service with logging
type loggingService struct {
	logger log.Logger
	next   Service
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) Convert(amount decimal.Decimal, source domain.Currency, target domain.Currency, table domain.RateTable) (converted decimal.Decimal, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "convert",
			"amount", amount,
			"from", source,
			"to", target,
			"base", table.Base(),
			"converted_amount", converted,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Convert(amount, source, target, table)
}

func (s *loggingService) Validate(source domain.Currency, target domain.Currency, table domain.RateTable) (ok bool) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "validate",
			"from", source,
			"to", target,
			"base", table.Base(),
			"valid", ok,
			"took", time.Since(begin),
		)
	}(time.Now())
	return s.next.Validate(source, target, table)
}
