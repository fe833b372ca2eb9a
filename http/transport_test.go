package http

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-exchange-rate-converter/convert"
	"go-exchange-rate-converter/domain"
	"go-exchange-rate-converter/refresh"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type rates map[domain.Currency]domain.RateTable

func (r rates) LatestTable(_ context.Context, base domain.Currency) (domain.RateTable, error) {
	table, ok := r[base]
	if !ok {
		return domain.RateTable{}, &domain.FetchError{Base: base, Reason: domain.ReasonNoData, Err: domain.ErrNoData}
	}
	return table, nil
}

type board struct {
	display refresh.Display
	err     error
	calls   []string
}

func (b *board) BeginEdit(_ context.Context, code domain.Currency) error {
	b.calls = append(b.calls, "edit "+string(code))
	return b.err
}

func (b *board) UpdateText(_ context.Context, text string) error {
	b.calls = append(b.calls, "text "+text)
	return b.err
}

func (b *board) EndEdit(context.Context) error {
	b.calls = append(b.calls, "settle")
	return b.err
}

func (b *board) Refresh(context.Context) error {
	b.calls = append(b.calls, "refresh")
	return b.err
}

func (b *board) Display(context.Context) (refresh.Display, error) {
	return b.display, nil
}

func newTestServer(t *testing.T, b *board) *Server {
	t.Helper()
	foo, err := domain.NewRate("FOO", "4.0")
	require.NoError(t, err)
	gbp, err := domain.NewRateTable("GBP", time.Time{}, foo)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total"}))

	return NewServer(rates{"GBP": gbp}, convert.NewService(), b, reg, log.NewNopLogger())
}

func TestServer_Convert(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		code int
		body string
	}{
		{"converts", `{"fromCurrency":"GBP", "toCurrency":"FOO","amount":2.0}`, 200, `{"rate":"4","amount":"8","original":"2"}`},
		{"string amount", `{"fromCurrency":"gbp", "toCurrency":"FOO","amount":"0.5"}`, 200, `{"rate":"4","amount":"2","original":"0.5"}`},
		{"same currency", `{"fromCurrency":"GBP", "toCurrency":"GBP","amount":3}`, 200, `{"rate":"1","amount":"3","original":"3"}`},
		{"same currency without rates", `{"fromCurrency":"XAU", "toCurrency":"xau","amount":"1.5"}`, 200, `{"rate":"1","amount":"1.5","original":"1.5"}`},
		{"invalid json", `{"fromCurrency":`, 400, `{"error":"invalid json"}`},
		{"invalid currency", `{"fromCurrency":"GB1", "toCurrency":"FOO","amount":2}`, 400, `{"error":"invalid currency"}`},
		{"negative amount", `{"fromCurrency":"GBP", "toCurrency":"FOO","amount":-2}`, 400, `{"error":"invalid amount"}`},
		{"unknown target", `{"fromCurrency":"GBP", "toCurrency":"BAR","amount":2}`, 400, `{"error":"unsupported currency"}`},
		{"no rates", `{"fromCurrency":"EUR", "toCurrency":"FOO","amount":2}`, 502, `{"error":"rates unavailable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &board{})

			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/api/convert", strings.NewReader(tt.msg))
			server.ServeHTTP(w, r)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.body, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestServer_ConvertMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &board{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/convert", nil))
	assert.Equal(t, 405, w.Code)
}

func TestServer_Board(t *testing.T) {
	b := &board{display: refresh.Display{
		State:      refresh.EditingPaused,
		Timer:      refresh.Suspended,
		Base:       "PLN",
		BaseAmount: decimal.RequireFromString("12.5"),
		UpdatedAt:  time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		Err:        &domain.FetchError{Base: "PLN", Reason: domain.ReasonNoData, Err: domain.ErrNoData},
		Rows: []refresh.Row{
			{Currency: "PLN", Name: "Polish zloty", Amount: decimal.RequireFromString("12.5"), Converted: true},
			{Currency: "EUR", Amount: decimal.RequireFromString("2.9"), Converted: true},
			{Currency: "JPY"},
		},
	}}
	server := newTestServer(t, b)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/board", nil))

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"state": "editing_paused",
		"timer": "suspended",
		"base": "PLN",
		"baseAmount": "12.5",
		"updatedAt": "2026-10-16T00:00:00Z",
		"error": "fetch [PLN]: no data: no data",
		"rows": [
			{"currency": "PLN", "name": "Polish zloty", "amount": "12.5"},
			{"currency": "EUR", "amount": "2.9"},
			{"currency": "JPY"}
		]
	}`, w.Body.String())
}

func TestServer_BoardCommands(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		msg   string
		err   error
		code  int
		calls []string
	}{
		{"edit", "/api/board/edit", `{"currency":"pln"}`, nil, 200, []string{"edit PLN"}},
		{"edit unknown row", "/api/board/edit", `{"currency":"JPY"}`, fmt.Errorf("begin edit: %w", refresh.ErrUnknownRow), 404, []string{"edit JPY"}},
		{"edit not ready", "/api/board/edit", `{"currency":"EUR"}`, refresh.ErrNotReady, 409, []string{"edit EUR"}},
		{"edit invalid currency", "/api/board/edit", `{"currency":"E"}`, nil, 400, nil},
		{"edit invalid json", "/api/board/edit", `nope`, nil, 400, nil},
		{"amount", "/api/board/amount", `{"text":"12."}`, nil, 200, []string{"text 12."}},
		{"amount empty", "/api/board/amount", `{"text":""}`, nil, 200, []string{"text "}},
		{"amount rejected", "/api/board/amount", `{"text":"1.2.3"}`, nil, 422, nil},
		{"settle", "/api/board/settle", ``, nil, 200, []string{"settle"}},
		{"refresh", "/api/board/refresh", ``, nil, 200, []string{"refresh"}},
		{"stopped", "/api/board/refresh", ``, refresh.ErrStopped, 503, []string{"refresh"}},
		{"failed", "/api/board/settle", ``, errors.New("boom"), 500, []string{"settle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &board{err: tt.err}
			server := newTestServer(t, b)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("POST", tt.path, strings.NewReader(tt.msg)))

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.calls, b.calls)
		})
	}
}

func TestServer_AmountRejected(t *testing.T) {
	server := newTestServer(t, &board{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/board/amount", strings.NewReader(`{"text":"-1"}`)))

	assert.Equal(t, 422, w.Code)
	assert.Equal(t, `{"accepted":false}`, strings.TrimSpace(w.Body.String()))
}

func TestServer_Metrics(t *testing.T) {
	server := newTestServer(t, &board{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "test_total 0")
}
