package weather

import (
	"encoding/json"
	"time"
)

// AlertLevel is the dashboard alert class derived from the current temperature.
type AlertLevel string

const (
	AlertSuccess AlertLevel = "success"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// Location represents a logical place for which we predict weather.
// City/Country must be provided.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// CurrentConditions is a provider's normalized view of the weather right now.
type CurrentConditions struct {
	Timestamp    time.Time
	TemperatureC float64
	HumidityPct  float64
	PressureHpa  float64
	WindSpeedMS  float64
	PrecipMm     float64

	// Raw is the provider payload as received.
	Raw json.RawMessage
}

// ForecastEntry is a single forecast interval. Local carries the location's
// UTC offset so it can be labelled in local time.
type ForecastEntry struct {
	Local        time.Time
	TemperatureC float64
}

// ForecastPoint is a labelled forecast interval as returned to clients.
type ForecastPoint struct {
	Time string  `json:"time"`
	Temp float64 `json:"temp"`
}

// PredictionResult is the outcome of the live prediction heuristic.
type PredictionResult struct {
	Location       Location        `json:"location"`
	Timestamp      time.Time       `json:"timestamp"` // always UTC
	CurrentTemp    float64         `json:"current_temp"`
	AlertLevel     AlertLevel      `json:"alert_level"`
	Narrative      string          `json:"narrative"`
	HourlyForecast []ForecastPoint `json:"hourly_forecast"`

	// ModelEstimate is the trained regressor's estimate for the live
	// conditions; nil when no model is available.
	ModelEstimate *float64 `json:"model_estimate,omitempty"`

	WeatherData json.RawMessage `json:"weather_data,omitempty"`
}
