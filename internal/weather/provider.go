package weather

import (
	"context"
	"time"
)

// Provider abstracts a live weather source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Current(ctx context.Context, loc Location) (CurrentConditions, error)
	Forecast(ctx context.Context, loc Location) ([]ForecastEntry, error)
}

// Estimator produces a model-based temperature estimate from live conditions.
// ok is false when no model is available.
type Estimator interface {
	Estimate(c CurrentConditions) (temp float64, ok bool)
}

// Store is the contract the in-memory prediction history must satisfy.
type Store interface {
	SaveSnapshot(loc Location, result PredictionResult)
	GetLatest(loc Location) (PredictionResult, error)
	GetRange(loc Location, from, to time.Time) ([]PredictionResult, error)
}
