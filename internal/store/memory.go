package store

import (
	"errors"
	"sync"
	"time"

	"github.com/earthscape/climate-analytics/internal/weather"
)

var (
	// ErrNotFound is returned when no prediction is recorded for a location.
	ErrNotFound = errors.New("no predictions recorded for location")
)

// history holds the time-ordered predictions for one location.
type history struct {
	results []weather.PredictionResult
}

// MemoryStore is a concurrency-safe in-memory prediction history.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key
	data map[string]*history

	maxHistory int           // max predictions per location (0 = unlimited)
	maxAge     time.Duration // max age of predictions (0 = unlimited)
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*history),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a prediction for a location and enforces retention.
func (s *MemoryStore) SaveSnapshot(loc weather.Location, result weather.PredictionResult) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.data[key]
	if !ok {
		h = &history{}
		s.data[key] = h
	}
	h.results = append(h.results, result)

	if s.maxHistory > 0 && len(h.results) > s.maxHistory {
		h.results = h.results[len(h.results)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(h.results); i++ {
			if !h.results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		h.results = h.results[i:]
	}
}

// GetLatest returns the most recent prediction for a location.
func (s *MemoryStore) GetLatest(loc weather.Location) (weather.PredictionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[loc.Key()]
	if !ok || len(h.results) == 0 {
		return weather.PredictionResult{}, ErrNotFound
	}
	return h.results[len(h.results)-1], nil
}

// GetRange returns the predictions for a location between from and to (inclusive).
func (s *MemoryStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.PredictionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[loc.Key()]
	if !ok || len(h.results) == 0 {
		return nil, ErrNotFound
	}

	var out []weather.PredictionResult
	for _, r := range h.results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
