package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/earthscape/climate-analytics/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})

	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: cb,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Current fetches current conditions from the /weather endpoint.
func (p *OpenWeatherProvider) Current(ctx context.Context, loc weather.Location) (weather.CurrentConditions, error) {
	if p.apiKey == "" {
		return weather.CurrentConditions{}, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.buildRequest("weather", loc))
	if err != nil {
		return weather.CurrentConditions{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("read current conditions: %w", err)
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity float64  `json:"humidity"`
			Pressure float64  `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			OneH   float64 `json:"1h"`
			ThreeH float64 `json:"3h"`
		} `json:"rain"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("decode current conditions: %w", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return weather.CurrentConditions{}, fmt.Errorf("current conditions missing main.temp")
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	precip := payload.Rain.OneH
	if precip == 0 {
		precip = payload.Rain.ThreeH
	}

	return weather.CurrentConditions{
		Timestamp:    ts,
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  payload.Main.Humidity,
		PressureHpa:  payload.Main.Pressure,
		WindSpeedMS:  payload.Wind.Speed,
		PrecipMm:     precip,
		Raw:          json.RawMessage(raw),
	}, nil
}

// Forecast fetches the 3-hourly forecast from the /forecast endpoint. Entry
// times carry the city's UTC offset.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, loc weather.Location) ([]weather.ForecastEntry, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.buildRequest("forecast", loc))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
		} `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	zone := time.FixedZone("", payload.City.Timezone)
	entries := make([]weather.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		entries = append(entries, weather.ForecastEntry{
			Local:        time.Unix(item.Dt, 0).In(zone),
			TemperatureC: item.Main.Temp,
		})
	}
	return entries, nil
}

func (p *OpenWeatherProvider) buildRequest(endpoint string, loc weather.Location) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		q := loc.City
		if loc.Country != "" {
			q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
		}
		values.Set("q", q)

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}
}
