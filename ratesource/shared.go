package ratesource

import (
	"context"
	"go-exchange-rate-converter/domain"
	"golang.org/x/sync/singleflight"
)

// sharedService decorates a ratesource.Service so concurrent requests for the same base
// share one call to the underlying service.
type sharedService struct {
	next  Service
	group singleflight.Group
}

// NewSharedService returns a new request collapsing Service
func NewSharedService(s Service) Service {
	return &sharedService{
		next: s,
	}
}

// LatestTable joins an in-flight request for base or starts one.
// The shared request outlives any single caller's cancellation; each caller stops waiting on its own context.
func (s *sharedService) LatestTable(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	ch := s.group.DoChan(string(base), func() (interface{}, error) {
		return s.next.LatestTable(context.WithoutCancel(ctx), base)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.RateTable{}, res.Err
		}
		return res.Val.(domain.RateTable), nil
	case <-ctx.Done():
		return domain.RateTable{}, fetchError(base, domain.ReasonTransport, ctx.Err())
	}
}
