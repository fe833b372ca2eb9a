package ratesource

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"go-exchange-rate-converter/domain"
	"sync"
	"time"
)

// cachingService decorates a ratesource.Service with a cache of rate tables.
// The cachingService is concurrency safe. Entries expire after ttl and are reloaded on the next lookup;
// nothing is refreshed in the background.
type cachingService struct {
	// next the service being decorated with a cache
	next Service

	// cache the last good table per base
	cache map[domain.Currency]cached

	// ttl how long a cached table is served
	ttl time.Duration

	// lock synchronizes access to cache to make it concurrency safe
	lock sync.RWMutex

	logger log.Logger

	// now clock, replaced in tests
	now func() time.Time
}

type cached struct {
	table     domain.RateTable
	fetchedAt time.Time
}

// NewCachingService returns a new caching Service
func NewCachingService(ttl time.Duration, logger log.Logger, s Service) Service {
	return &cachingService{
		next:   s,
		cache:  map[domain.Currency]cached{},
		ttl:    ttl,
		lock:   sync.RWMutex{},
		logger: logger,
		now:    time.Now,
	}
}

// LatestTable looks up a table and caches the result
func (s *cachingService) LatestTable(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	s.lock.RLock()
	entry, ok := s.cache[base]
	s.lock.RUnlock()

	if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
		return entry.table, nil
	}

	table, err := s.refreshNow(ctx, base)
	if err != nil {
		if ok {
			s.logger.Log("msg", "refresh failed, cached table expired", "base", base, "error", err)
		}
		return domain.RateTable{}, err
	}
	return table, nil
}

// refreshNow refreshes a cached entry immediately
func (s *cachingService) refreshNow(ctx context.Context, base domain.Currency) (domain.RateTable, error) {
	table, err := s.next.LatestTable(ctx, base)
	if err != nil {
		return domain.RateTable{}, fmt.Errorf("refresh [%v]: %w", base, err)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cache[base] = cached{table: table, fetchedAt: s.now()}
	return table, nil
}
