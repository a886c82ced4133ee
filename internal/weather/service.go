package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Service fetches reports from a single provider and, when a store is
// configured, keeps them for reuse and history queries.
type Service struct {
	provider Provider
	store    Store
	maxAge   time.Duration

	now func() time.Time
}

// NewService creates a new Service. store may be nil, in which case every
// call goes to the provider. Stored reports younger than maxAge are served
// without a new request; maxAge <= 0 disables reuse.
func NewService(provider Provider, store Store, maxAge time.Duration) *Service {
	return &Service{
		provider: provider,
		store:    store,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Current returns current conditions for loc, reusing a fresh stored
// report when possible.
func (s *Service) Current(ctx context.Context, loc Location) (Report, error) {
	if s.store != nil && s.maxAge > 0 {
		if r, err := s.store.GetLatest(loc); err == nil && s.now().Sub(r.FetchedAt) < s.maxAge {
			log.Printf("DEBUG: serving stored report %s for %s", r.ID, loc.Key())
			return r, nil
		}
	}
	return s.FetchAndStore(ctx, loc)
}

// FetchAndStore always asks the provider for loc and stores the result.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (Report, error) {
	if s.provider == nil {
		return Report{}, fmt.Errorf("%w: no weather provider configured", ErrUpstream)
	}

	log.Printf("DEBUG: fetching %s from %s", loc.Key(), s.provider.Name())

	r, err := s.provider.Fetch(ctx, loc)
	if err != nil {
		return Report{}, err
	}

	r.ID = uuid.NewString()
	r.Provider = s.provider.Name()
	r.Location = loc
	r.FetchedAt = s.now().UTC()
	if r.Current.Timestamp.IsZero() {
		r.Current.Timestamp = r.FetchedAt
	}

	if s.store != nil {
		s.store.SaveReport(loc, r)
	}
	return r, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (Report, error) {
	if s.store == nil {
		return Report{}, fmt.Errorf("no report store configured")
	}
	return s.store.GetLatest(loc)
}
