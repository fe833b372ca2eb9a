package ratesource

import (
	"bytes"
	"context"
	"errors"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-exchange-rate-converter/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mock struct {
	count   int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (m *mock) LatestTable(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	if atomic.AddInt32(&m.count, 1) == 1 && m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return domain.RateTable{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.RateTable{}, m.err
	}
	gbp, _ := domain.NewRate("GBP", "0.9")
	return domain.NewRateTable(base, time.Time{}, gbp)
}

func (m *mock) calls() int32 {
	return atomic.LoadInt32(&m.count)
}

func TestCachingService(t *testing.T) {
	var underlyingService mock
	s := NewCachingService(1*time.Minute, log.NewNopLogger(), &underlyingService)

	_, _ = s.LatestTable(context.Background(), "ABC")
	assert.Equal(t, int32(1), underlyingService.calls())

	table, err := s.LatestTable(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, domain.Currency("ABC"), table.Base())
	assert.Equal(t, int32(1), underlyingService.calls())

	_, _ = s.LatestTable(context.Background(), "XYZ")
	assert.Equal(t, int32(2), underlyingService.calls())
}

func TestCachingService_Expiry(t *testing.T) {
	var underlyingService mock
	s := NewCachingService(1*time.Minute, log.NewNopLogger(), &underlyingService).(*cachingService)
	now := time.Date(2019, 1, 25, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _ = s.LatestTable(context.Background(), "ABC")
	now = now.Add(59 * time.Second)
	_, _ = s.LatestTable(context.Background(), "ABC")
	assert.Equal(t, int32(1), underlyingService.calls())

	now = now.Add(time.Second)
	_, _ = s.LatestTable(context.Background(), "ABC")
	assert.Equal(t, int32(2), underlyingService.calls())
}

func TestCachingService_ErrorsAreNotCached(t *testing.T) {
	underlyingService := mock{err: errors.New("boom")}
	s := NewCachingService(1*time.Minute, log.NewNopLogger(), &underlyingService)

	_, err := s.LatestTable(context.Background(), "ABC")
	assert.Error(t, err)
	_, err = s.LatestTable(context.Background(), "ABC")
	assert.Error(t, err)
	assert.Equal(t, int32(2), underlyingService.calls())
}

func TestSharedService(t *testing.T) {
	underlyingService := mock{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewSharedService(&underlyingService)

	var wg sync.WaitGroup
	results := make([]domain.RateTable, 10)
	errs := make([]error, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = s.LatestTable(context.Background(), "EUR")
	}()
	<-underlyingService.started

	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.LatestTable(context.Background(), "EUR")
		}(i)
	}
	time.Sleep(50 * time.Millisecond) // let the callers join the in-flight request
	close(underlyingService.release)
	wg.Wait()

	assert.Equal(t, int32(1), underlyingService.calls())
	for i := range results {
		assert.NoError(t, errs[i])
		assert.Equal(t, domain.Currency("EUR"), results[i].Base())
	}

	_, _ = s.LatestTable(context.Background(), "EUR")
	assert.Equal(t, int32(2), underlyingService.calls(), "finished requests are not reused")
}

func TestSharedService_CallerCancelled(t *testing.T) {
	underlyingService := mock{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewSharedService(&underlyingService)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.LatestTable(ctx, "GBP")
		firstErr <- err
	}()
	<-underlyingService.started

	type outcome struct {
		table domain.RateTable
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		table, err := s.LatestTable(context.Background(), "GBP")
		second <- outcome{table, err}
	}()
	time.Sleep(50 * time.Millisecond) // let the second caller join the in-flight request

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
		var fetchErr *domain.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, domain.ReasonTransport, fetchErr.Reason)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(underlyingService.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, domain.Currency("GBP"), got.table.Base())
	case <-time.After(time.Second):
		t.Fatal("second caller got no table")
	}
	assert.Equal(t, int32(1), underlyingService.calls())
}

func TestInstrumentingService(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	_, _ = NewInstrumentingService(metrics, &mock{}).LatestTable(context.Background(), "EUR")
	_, _ = NewInstrumentingService(metrics, &mock{err: &domain.FetchError{Base: "EUR", Reason: domain.ReasonDecode, Err: errors.New("bad")}}).LatestTable(context.Background(), "EUR")
	_, _ = NewInstrumentingService(metrics, &mock{err: errors.New("boom")}).LatestTable(context.Background(), "EUR")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("EUR", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("EUR", "decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("EUR", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Latency))
}

func TestLoggingService(t *testing.T) {
	var buf bytes.Buffer
	s := NewLoggingService(log.NewLogfmtLogger(&buf), &mock{})

	_, err := s.LatestTable(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "method=latest_table base=EUR rates=1")
}
