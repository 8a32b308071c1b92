package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when city or country is missing.
	ErrValidation = errors.New("city and country are required")

	// ErrUpstream wraps failures of the external weather service.
	ErrUpstream = errors.New("failed to fetch weather data")
)

// StatusError reports a non-2xx response from the weather service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

const (
	dangerAbove  = 30.0
	warningBelow = 20.0
	risingAbove  = 28.0

	maxForecastPoints = 5
)

// Classify maps a temperature in °C onto an alert level.
func Classify(tempC float64) AlertLevel {
	switch {
	case tempC > dangerAbove:
		return AlertDanger
	case tempC < warningBelow:
		return AlertWarning
	default:
		return AlertSuccess
	}
}

// Trend returns the expected short-term direction for a temperature.
func Trend(tempC float64) string {
	if tempC > risingAbove {
		return "further increase"
	}
	return "remain stable"
}

// Narrative composes the human-readable prediction text.
func Narrative(loc Location, tempC float64) string {
	return fmt.Sprintf("Current temperature for %s, %s: %.2f°C. The temperature is expected to %s.",
		loc.City, loc.Country, tempC, Trend(tempC))
}

// ForecastPoints labels the first intervals of a forecast in local time.
func ForecastPoints(entries []ForecastEntry) []ForecastPoint {
	n := len(entries)
	if n > maxForecastPoints {
		n = maxForecastPoints
	}
	points := make([]ForecastPoint, 0, n)
	for _, e := range entries[:n] {
		points = append(points, ForecastPoint{
			Time: e.Local.Format("15:04"),
			Temp: e.TemperatureC,
		})
	}
	return points
}
