package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"go-exchange-rate-converter/domain"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const ApiUrlBase = "https://api.exchangeratesapi.io"

// DateLayout layout of the date the source publishes rates under
const DateLayout = "2006-01-02"

// Service supplies the latest rate table for a base currency
type Service interface {
	LatestTable(ctx context.Context, base domain.Currency) (domain.RateTable, error)
}

// service exchange rates REST API
type service struct {
	// url base API url
	url string

	// client for HTTP requests
	client http.Client
}

// NewService constructs a valid Service against the API rooted at url.
func NewService(url string, timeout time.Duration) Service {
	return &service{
		url: url,
		client: http.Client{
			Timeout: timeout,
		},
	}
}

// LatestTable loads the current rates quoted against base.
// Failures are reported as *domain.FetchError.
func (s *service) LatestTable(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	type Response struct {
		Base  string
		Date  string
		Rates map[string]json.Number // maps currency codes to rate literals
	}

	u := fmt.Sprintf("%v/latest?base=%v", s.url, url.QueryEscape(string(base)))

	request, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonTransport, fmt.Errorf("building http request: %w", err))
	}
	httpResponse, err := s.client.Do(request)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonTransport, fmt.Errorf("http get: %w", err))
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return domain.RateTable{}, fetchError(base, domain.ReasonTransport, fmt.Errorf("http status %d", httpResponse.StatusCode))
	}

	bytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonTransport, fmt.Errorf("reading json: %w", err))
	}
	if len(bytes) == 0 {
		return domain.RateTable{}, fetchError(base, domain.ReasonNoData, domain.ErrNoData)
	}

	var response Response
	err = json.Unmarshal(bytes, &response)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("decoding json: %w", err))
	}

	updatedAt, err := time.Parse(DateLayout, response.Date)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("bad date: %w", err))
	}

	codes := make([]string, 0, len(response.Rates))
	for k := range response.Rates {
		codes = append(codes, k)
	}
	sort.Strings(codes)

	rates := make([]domain.Rate, 0, len(codes))
	for _, k := range codes {
		code, err := domain.ParseCurrency(k)
		if err != nil {
			return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("bad rate code: %w", err))
		}
		rate, err := domain.NewRate(code, response.Rates[k].String())
		if err != nil {
			return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("bad rate value: %w", err))
		}
		rates = append(rates, rate)
	}

	tableBase, err := domain.ParseCurrency(response.Base)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("bad base: %w", err))
	}
	table, err := domain.NewRateTable(tableBase, updatedAt, rates...)
	if err != nil {
		return domain.RateTable{}, fetchError(base, domain.ReasonDecode, err)
	}
	if table.Base() != base {
		return domain.RateTable{}, fetchError(base, domain.ReasonDecode, fmt.Errorf("answered for base [%v]", table.Base()))
	}

	return table, nil
}

func fetchError(base domain.Currency, reason domain.FetchReason, err error) error {
	return &domain.FetchError{Base: base, Reason: reason, Err: err}
}
