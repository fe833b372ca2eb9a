package ratesource

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go-exchange-rate-converter/domain"
	"time"
)

// Metrics collected around rate source requests
type Metrics struct {
	// Requests counts requests by base and outcome
	Requests *prometheus.CounterVec

	// Latency observes request duration by base
	Latency *prometheus.HistogramVec
}

// NewMetrics registers the rate source metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_source_requests_total",
				Help: "Rate table requests by base currency and outcome",
			},
			[]string{"base", "outcome"},
		),
		Latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_source_request_duration_seconds",
				Help:    "Rate table request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"base"},
		),
	}
}

// instrumentingService decorates a ratesource.Service with metrics
type instrumentingService struct {
	metrics *Metrics
	next    Service
}

// NewInstrumentingService returns a new instrumenting Service
func NewInstrumentingService(metrics *Metrics, s Service) Service {
	return &instrumentingService{
		metrics: metrics,
		next:    s,
	}
}

func (s *instrumentingService) LatestTable(ctx context.Context, base domain.Currency) (table domain.RateTable, err error) {
	defer func(begin time.Time) {
		s.metrics.Requests.WithLabelValues(string(base), outcome(err)).Inc()
		s.metrics.Latency.WithLabelValues(string(base)).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return s.next.LatestTable(ctx, base)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		return "error"
	}
	switch fetchErr.Reason {
	case domain.ReasonNoData:
		return "no_data"
	case domain.ReasonDecode:
		return "decode"
	}
	return "transport"
}
