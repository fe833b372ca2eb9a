package ratesource

import (
	"context"
	"github.com/go-kit/log"
	"go-exchange-rate-converter/domain"
	"time"
)

// loggingService decorates a ratesource.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) LatestTable(ctx context.Context, base domain.Currency) (table domain.RateTable, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "latest_table",
			"base", base,
			"rates", table.Len(),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.LatestTable(ctx, base)
}
