package weather

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeProvider struct {
	mu            sync.Mutex
	temp          float64
	currentErr    error
	forecastErr   error
	forecast      []ForecastEntry
	currentCalls  int
	forecastCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Current(ctx context.Context, loc Location) (CurrentConditions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls++
	if _, ok := ctx.Deadline(); !ok {
		return CurrentConditions{}, errors.New("stage context has no deadline")
	}
	if f.currentErr != nil {
		return CurrentConditions{}, f.currentErr
	}
	return CurrentConditions{
		Timestamp:    time.Unix(1700000000, 0).UTC(),
		TemperatureC: f.temp,
		HumidityPct:  50,
		Raw:          []byte(`{"main":{"temp":1}}`),
	}, nil
}

func (f *fakeProvider) Forecast(ctx context.Context, loc Location) ([]ForecastEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastCalls++
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return f.forecast, nil
}

type fakeStore struct {
	saved []PredictionResult
}

func (s *fakeStore) SaveSnapshot(loc Location, r PredictionResult) { s.saved = append(s.saved, r) }
func (s *fakeStore) GetLatest(loc Location) (PredictionResult, error) {
	return s.saved[len(s.saved)-1], nil
}
func (s *fakeStore) GetRange(loc Location, from, to time.Time) ([]PredictionResult, error) {
	return s.saved, nil
}

type fixedEstimator float64

func (e fixedEstimator) Estimate(CurrentConditions) (float64, bool) { return float64(e), true }

func forecastEntries(n int) []ForecastEntry {
	zone := time.FixedZone("", 5*3600)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, zone)
	out := make([]ForecastEntry, n)
	for i := range out {
		out[i] = ForecastEntry{Local: base.Add(time.Duration(i*3) * time.Hour), TemperatureC: 20 + float64(i)}
	}
	return out
}

func TestPredictValidationMakesNoNetworkCall(t *testing.T) {
	p := &fakeProvider{temp: 25}
	svc := NewService(nil, p, nil, time.Second)

	for _, tc := range [][2]string{{"", "X"}, {"X", ""}, {"  ", "X"}} {
		_, err := svc.Predict(context.Background(), tc[0], tc[1])
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("Predict(%q, %q): expected validation error, got %v", tc[0], tc[1], err)
		}
	}
	if p.currentCalls != 0 || p.forecastCalls != 0 {
		t.Fatalf("validation failure issued %d/%d calls", p.currentCalls, p.forecastCalls)
	}
}

func TestPredictClassification(t *testing.T) {
	tests := []struct {
		temp  float64
		level AlertLevel
		trend string
	}{
		{31, AlertDanger, "further increase"},
		{29, AlertSuccess, "further increase"},
		{25, AlertSuccess, "remain stable"},
		{20, AlertSuccess, "remain stable"},
		{15, AlertWarning, "remain stable"},
	}
	for _, tt := range tests {
		p := &fakeProvider{temp: tt.temp, forecast: forecastEntries(8)}
		svc := NewService(nil, p, nil, time.Second)

		got, err := svc.Predict(context.Background(), "Karachi", "Pakistan")
		if err != nil {
			t.Fatalf("temp %v: unexpected error: %v", tt.temp, err)
		}
		if got.AlertLevel != tt.level {
			t.Fatalf("temp %v: expected %s, got %s", tt.temp, tt.level, got.AlertLevel)
		}
		if !strings.Contains(got.Narrative, tt.trend) {
			t.Fatalf("temp %v: narrative %q missing trend %q", tt.temp, got.Narrative, tt.trend)
		}
		if got.CurrentTemp != tt.temp {
			t.Fatalf("unexpected current temp %v", got.CurrentTemp)
		}
		if len(got.HourlyForecast) != 5 {
			t.Fatalf("expected 5 forecast points, got %d", len(got.HourlyForecast))
		}
	}
}

func TestPredictNarrative(t *testing.T) {
	p := &fakeProvider{temp: 31, forecast: forecastEntries(2)}
	svc := NewService(nil, p, nil, time.Second)
	got, err := svc.Predict(context.Background(), "Karachi", "Pakistan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Current temperature for Karachi, Pakistan: 31.00°C. The temperature is expected to further increase."
	if got.Narrative != want {
		t.Fatalf("expected %q, got %q", want, got.Narrative)
	}
	if got.HourlyForecast[0] != (ForecastPoint{Time: "00:00", Temp: 20}) || got.HourlyForecast[1].Time != "03:00" {
		t.Fatalf("unexpected forecast %+v", got.HourlyForecast)
	}
}

func TestPredictForecastFailureIsTolerated(t *testing.T) {
	p := &fakeProvider{temp: 15, forecastErr: &StatusError{Code: 500}}
	svc := NewService(nil, p, nil, time.Second)

	got, err := svc.Predict(context.Background(), "Karachi", "Pakistan")
	if err != nil {
		t.Fatalf("forecast failure must not fail the call: %v", err)
	}
	if got.CurrentTemp != 15 || got.AlertLevel != AlertWarning {
		t.Fatalf("missing current-condition fields: %+v", got)
	}
	if got.HourlyForecast == nil || len(got.HourlyForecast) != 0 {
		t.Fatalf("expected empty, non-nil forecast, got %v", got.HourlyForecast)
	}
	if p.forecastCalls != 1 {
		t.Fatalf("expected one forecast attempt, got %d", p.forecastCalls)
	}
}

func TestPredictCurrentFailureIsAnError(t *testing.T) {
	p := &fakeProvider{currentErr: &StatusError{Code: 401}}
	svc := NewService(nil, p, nil, time.Second)

	_, err := svc.Predict(context.Background(), "Karachi", "Pakistan")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 401 {
		t.Fatalf("expected status 401 to be carried, got %v", err)
	}
	if p.currentCalls != 1 || p.forecastCalls != 0 {
		t.Fatalf("expected a single current attempt and no forecast, got %d/%d", p.currentCalls, p.forecastCalls)
	}
}

func TestPredictRecordsHistoryAndEstimate(t *testing.T) {
	store := &fakeStore{}
	p := &fakeProvider{temp: 22, forecast: forecastEntries(1)}
	svc := NewService(store, p, fixedEstimator(21.5), time.Second)

	got, err := svc.Predict(context.Background(), "London", "United Kingdom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ModelEstimate == nil || *got.ModelEstimate != 21.5 {
		t.Fatalf("expected model estimate, got %v", got.ModelEstimate)
	}
	if len(store.saved) != 1 || store.saved[0].Location.City != "London" {
		t.Fatalf("expected prediction to be recorded, got %+v", store.saved)
	}
	if string(got.WeatherData) == "" {
		t.Fatalf("expected raw weather data")
	}
}
