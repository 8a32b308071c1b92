package weather

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Service orchestrates the live prediction: current conditions, then the
// short-term forecast, each a single attempt under its own timeout.
type Service struct {
	store     Store
	provider  Provider
	estimator Estimator
	timeout   time.Duration
}

// NewService creates a new Service. store and estimator may be nil.
func NewService(store Store, provider Provider, estimator Estimator, stageTimeout time.Duration) *Service {
	if stageTimeout <= 0 {
		stageTimeout = 10 * time.Second
	}
	return &Service{
		store:     store,
		provider:  provider,
		estimator: estimator,
		timeout:   stageTimeout,
	}
}

// Predict fetches current conditions for city/country and classifies them.
// A missing city or country fails with ErrValidation before any network call.
// A failed forecast stage yields an empty HourlyForecast, never an error.
func (s *Service) Predict(ctx context.Context, city, country string) (PredictionResult, error) {
	loc := Location{City: strings.TrimSpace(city), Country: strings.TrimSpace(country)}
	if loc.City == "" || loc.Country == "" {
		return PredictionResult{}, ErrValidation
	}
	if s.provider == nil {
		return PredictionResult{}, fmt.Errorf("%w: no weather provider configured", ErrUpstream)
	}

	current, err := s.fetchCurrent(ctx, loc)
	if err != nil {
		log.Printf("provider %s current conditions failed for %s: %v", s.provider.Name(), loc.Key(), err)
		return PredictionResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	temp := current.TemperatureC
	result := PredictionResult{
		Location:       loc,
		Timestamp:      current.Timestamp,
		CurrentTemp:    temp,
		AlertLevel:     Classify(temp),
		Narrative:      Narrative(loc, temp),
		HourlyForecast: []ForecastPoint{},
		WeatherData:    current.Raw,
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	entries, err := s.fetchForecast(ctx, loc)
	if err != nil {
		log.Printf("provider %s forecast failed for %s: %v", s.provider.Name(), loc.Key(), err)
	} else {
		result.HourlyForecast = ForecastPoints(entries)
	}

	if s.estimator != nil {
		if est, ok := s.estimator.Estimate(current); ok {
			result.ModelEstimate = &est
		}
	}

	if s.store != nil {
		s.store.SaveSnapshot(loc, result)
	}
	return result, nil
}

func (s *Service) fetchCurrent(ctx context.Context, loc Location) (CurrentConditions, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Current(stageCtx, loc)
}

func (s *Service) fetchForecast(ctx context.Context, loc Location) ([]ForecastEntry, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Forecast(stageCtx, loc)
}

// FetchAndStore runs a prediction for a tracked location so its history stays
// current. Failures are returned for the caller to log.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	_, err := s.Predict(ctx, loc.City, loc.Country)
	return err
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (PredictionResult, error) {
	if s.store == nil {
		return PredictionResult{}, fmt.Errorf("prediction history is disabled")
	}
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]PredictionResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("prediction history is disabled")
	}
	return s.store.GetRange(loc, from, to)
}
