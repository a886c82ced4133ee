package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/present"
	"github.com/i474232898/raincoat/internal/weather"
)

var (
	// ErrNotFound is returned when no report is available for a given location.
	ErrNotFound = errors.New("no weather report for location")
)

// MemoryStore keeps recent recommendations per location. Each report is
// classified once, when it is saved, so history reads return the outfit
// chosen at the time without running the tables again.
type MemoryStore struct {
	mu      sync.RWMutex
	builder *outfit.Builder

	// key: location key, value: recommendations ordered by Report.FetchedAt
	byLoc map[string][]present.Recommendation

	maxHistory int           // 0 = unlimited
	maxAge     time.Duration // 0 = unlimited

	now func() time.Time
}

// NewMemoryStore creates a store that classifies saved reports with builder.
// maxHistory <= 0 and maxAge <= 0 disable the respective limit.
func NewMemoryStore(builder *outfit.Builder, maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		builder:    builder,
		byLoc:      make(map[string][]present.Recommendation),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReport classifies report and records it for loc. A report for the
// same upstream observation as the latest entry replaces that entry, so
// polling faster than the provider updates does not repeat observations.
func (s *MemoryStore) SaveReport(loc weather.Location, report weather.Report) {
	rec := present.NewRecommendation(report, s.builder)
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.byLoc[key]
	n := len(recs)
	switch {
	case n > 0 && sameObservation(recs[n-1].Report, report):
		recs[n-1] = rec
	case n == 0 || !report.FetchedAt.Before(recs[n-1].Report.FetchedAt):
		recs = append(recs, rec)
	default:
		// Concurrent fetches can finish out of order.
		i := sort.Search(n, func(i int) bool {
			return recs[i].Report.FetchedAt.After(report.FetchedAt)
		})
		recs = append(recs, present.Recommendation{})
		copy(recs[i+1:], recs[i:])
		recs[i] = rec
	}
	s.byLoc[key] = s.prune(recs)
}

func sameObservation(a, b weather.Report) bool {
	return a.Provider == b.Provider &&
		!a.Current.Timestamp.IsZero() &&
		a.Current.Timestamp.Equal(b.Current.Timestamp)
}

// prune applies count and age retention. The newest entry always survives.
func (s *MemoryStore) prune(recs []present.Recommendation) []present.Recommendation {
	start := 0
	if s.maxHistory > 0 && len(recs) > s.maxHistory {
		start = len(recs) - s.maxHistory
	}
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		fresh := sort.Search(len(recs)-1, func(i int) bool {
			return !recs[i].Report.FetchedAt.Before(cutoff)
		})
		if fresh > start {
			start = fresh
		}
	}
	if start == 0 {
		return recs
	}
	return append([]present.Recommendation(nil), recs[start:]...)
}

// Latest returns the most recent recommendation for loc.
func (s *MemoryStore) Latest(loc weather.Location) (present.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.byLoc[loc.Key()]
	if len(recs) == 0 {
		return present.Recommendation{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

// GetLatest returns the report behind Latest.
func (s *MemoryStore) GetLatest(loc weather.Location) (weather.Report, error) {
	rec, err := s.Latest(loc)
	if err != nil {
		return weather.Report{}, err
	}
	return rec.Report, nil
}

// History returns the recommendations for loc fetched between from and to
// (inclusive), oldest first.
func (s *MemoryStore) History(loc weather.Location, from, to time.Time) ([]present.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.byLoc[loc.Key()]
	lo := sort.Search(len(recs), func(i int) bool {
		return !recs[i].Report.FetchedAt.Before(from)
	})
	hi := sort.Search(len(recs), func(i int) bool {
		return recs[i].Report.FetchedAt.After(to)
	})
	if lo >= hi {
		return nil, ErrNotFound
	}
	return append([]present.Recommendation(nil), recs[lo:hi]...), nil
}
