package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/earthscape/climate-analytics/internal/analytics"
	"github.com/earthscape/climate-analytics/internal/app"
	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/ml"
	"github.com/earthscape/climate-analytics/internal/store"
	"github.com/earthscape/climate-analytics/internal/weather"
	"github.com/earthscape/climate-analytics/internal/weather/providers"
)

// weatherServer fakes the OpenWeatherMap API. A zero forecastStatus serves a
// forecast; anything else fails the forecast endpoint with that status.
type weatherServer struct {
	*httptest.Server
	calls          int32
	temp           float64
	currentStatus  int
	forecastStatus int
}

func newWeatherServer(t *testing.T, temp float64) *weatherServer {
	ws := &weatherServer{temp: temp}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ws.calls, 1)
		switch r.URL.Path {
		case "/weather":
			if ws.currentStatus != 0 {
				w.WriteHeader(ws.currentStatus)
				return
			}
			_, _ = w.Write([]byte(`{"dt":1700000000,"main":{"temp":` + jsonNumber(ws.temp) + `,"humidity":40,"pressure":1008},"wind":{"speed":3}}`))
		case "/forecast":
			if ws.forecastStatus != 0 {
				w.WriteHeader(ws.forecastStatus)
				return
			}
			_, _ = w.Write([]byte(`{"list":[{"dt":1700000000,"main":{"temp":30}},{"dt":1700010800,"main":{"temp":29}},{"dt":1700021600,"main":{"temp":28}},{"dt":1700032400,"main":{"temp":27}},{"dt":1700043200,"main":{"temp":26}},{"dt":1700054000,"main":{"temp":25}}],"city":{"timezone":18000}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ws.Close)
	return ws
}

func jsonNumber(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func testDataset() *climate.Dataset {
	rng := rand.New(rand.NewSource(1))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []climate.Record
	for i := 0; i < 80; i++ {
		city, country := "Karachi", "Pakistan"
		if i%4 == 0 {
			city, country = "London", "United Kingdom"
		}
		h := 40 + rng.Float64()*40
		records = append(records, climate.Record{
			Date:        base.AddDate(0, 0, i),
			Temperature: 10 + 0.3*h + rng.NormFloat64(),
			Humidity:    h,
			CO2Level:    400 + rng.Float64()*20,
			City:        city,
			Country:     country,
			WindSpeed:   2 + rng.Float64()*6,
			Rainfall:    rng.Float64() * 5,
			Pressure:    1000 + rng.Float64()*20,
		})
	}
	return climate.NewDataset(records)
}

func newTestApp(t *testing.T, ds *climate.Dataset, backend *ml.Backend, ws *weatherServer) *fiber.App {
	t.Helper()
	baseline := climate.Location{City: "Karachi", Country: "Pakistan"}
	slot := ml.NewModelSlot(filepath.Join(t.TempDir(), "model.json.zst"))

	var provider weather.Provider
	if ws != nil {
		provider = providers.NewOpenWeatherProvider(ws.Client(), "key", ws.URL)
	}

	a := &app.App{
		Dataset:   ds,
		Analytics: analytics.NewService(ds, baseline),
		Weather:   weather.NewService(store.NewMemoryStore(10, 0), provider, nil, time.Second),
		Backend:   backend,
		Models:    slot,
		Trainer:   ml.NewTrainer(backend, slot),
		Detector:  ml.NewDetector(backend),
	}

	router := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(router, a)
	return router
}

func forestBackend(t *testing.T) *ml.Backend {
	t.Helper()
	b, err := ml.Probe("forest", 5, 4)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func do(t *testing.T, router *fiber.App, method, target string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := router.Test(req, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("invalid JSON body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestCorrelationEndpoint(t *testing.T) {
	router := newTestApp(t, testDataset(), nil, nil)

	code, body := do(t, router, http.MethodGet, "/api/v1/analytics/correlation", nil)
	if code != http.StatusOK || string(body["image"]) == "null" || len(body["image"]) < 100 {
		t.Fatalf("expected an image, got %d %s", code, body["image"])
	}

	code, body = do(t, router, http.MethodGet, "/api/v1/analytics/correlation?city=Nowhere", nil)
	if code != http.StatusOK || string(body["image"]) != "null" {
		t.Fatalf("expected null image for unknown city, got %d %s", code, body["image"])
	}
}

func TestCorrelationWithoutDataset(t *testing.T) {
	router := newTestApp(t, nil, nil, nil)
	code, body := do(t, router, http.MethodGet, "/api/v1/analytics/correlation?city=Karachi", nil)
	if code != http.StatusOK || string(body["image"]) != "null" {
		t.Fatalf("expected null image without a dataset, got %d %s", code, body["image"])
	}
}

func TestComparisonEndpoint(t *testing.T) {
	router := newTestApp(t, testDataset(), nil, nil)

	code, body := do(t, router, http.MethodPost, "/api/v1/analytics/comparison", map[string]interface{}{
		"variables":  []string{"temperature", "humidity", "unknown"},
		"city":       "Karachi",
		"start_date": "2023-01-10",
		"end_date":   "2023-02-10",
	})
	if code != http.StatusOK || len(body["image"]) < 100 {
		t.Fatalf("expected an image, got %d", code)
	}

	code, body = do(t, router, http.MethodPost, "/api/v1/analytics/comparison", map[string]interface{}{
		"variables": []string{"temperature"},
		"city":      "Nowhere",
	})
	if code != http.StatusBadRequest || !strings.Contains(string(body["message"]), "Could not generate comparison plot") {
		t.Fatalf("expected 400 for empty selection, got %d %s", code, body["message"])
	}

	code, _ = do(t, router, http.MethodPost, "/api/v1/analytics/comparison", map[string]interface{}{"city": "Karachi"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 without variables, got %d", code)
	}
}

func TestDataEndpoint(t *testing.T) {
	router := newTestApp(t, testDataset(), nil, nil)

	code, body := do(t, router, http.MethodGet, "/api/v1/analytics/data", nil)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var rows []climate.SeriesRow
	if err := json.Unmarshal(body["data"], &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 60 {
		t.Fatalf("expected the 60 baseline rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.City != "Karachi" || r.Country != "Pakistan" {
			t.Fatalf("unexpected row for %s/%s", r.City, r.Country)
		}
	}

	code, body = do(t, router, http.MethodGet, "/api/v1/analytics/data?city=Nowhere", nil)
	if code != http.StatusOK || string(body["data"]) != "[]" {
		t.Fatalf("expected empty array, got %d %s", code, body["data"])
	}

	code, _ = do(t, router, http.MethodGet, "/api/v1/analytics/data?start_date=yesterday", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid date, got %d", code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	ws := newWeatherServer(t, 31)
	router := newTestApp(t, nil, nil, ws)

	for _, body := range []map[string]string{{"city": "", "country": "X"}, {"city": "X", "country": ""}} {
		code, _ := do(t, router, http.MethodPost, "/api/v1/predict", body)
		if code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, code)
		}
	}
	if n := atomic.LoadInt32(&ws.calls); n != 0 {
		t.Fatalf("validation failure issued %d upstream calls", n)
	}

	code, body := do(t, router, http.MethodPost, "/api/v1/predict", map[string]string{"city": "Karachi", "country": "Pakistan"})
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if string(body["alert_level"]) != `"danger"` || !strings.Contains(string(body["narrative"]), "further increase") {
		t.Fatalf("unexpected prediction %s / %s", body["alert_level"], body["narrative"])
	}
	var forecast []weather.ForecastPoint
	if err := json.Unmarshal(body["hourly_forecast"], &forecast); err != nil {
		t.Fatal(err)
	}
	if len(forecast) != 5 || forecast[0].Time != "03:13" {
		t.Fatalf("unexpected forecast %+v", forecast)
	}

	code, body = do(t, router, http.MethodGet, "/api/v1/predict/latest?city=Karachi&country=Pakistan", nil)
	if code != http.StatusOK || string(body["current_temp"]) != "31" {
		t.Fatalf("expected recorded prediction, got %d %s", code, body["current_temp"])
	}

	code, _ = do(t, router, http.MethodGet, "/api/v1/predict/latest?city=London&country=UK", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unrecorded location, got %d", code)
	}
}

func TestPredictForecastFailure(t *testing.T) {
	ws := newWeatherServer(t, 15)
	ws.forecastStatus = http.StatusInternalServerError
	router := newTestApp(t, nil, nil, ws)

	code, body := do(t, router, http.MethodPost, "/api/v1/predict", map[string]string{"city": "Karachi", "country": "Pakistan"})
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if string(body["hourly_forecast"]) != "[]" || string(body["alert_level"]) != `"warning"` {
		t.Fatalf("unexpected body %s / %s", body["hourly_forecast"], body["alert_level"])
	}
}

func TestPredictUpstreamFailure(t *testing.T) {
	ws := newWeatherServer(t, 25)
	ws.currentStatus = http.StatusNotFound
	router := newTestApp(t, nil, nil, ws)

	code, body := do(t, router, http.MethodPost, "/api/v1/predict", map[string]string{"city": "Atlantis", "country": "XX"})
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if !strings.Contains(string(body["message"]), "404") {
		t.Fatalf("expected upstream status in message, got %s", body["message"])
	}
}

func TestModelEndpoints(t *testing.T) {
	router := newTestApp(t, testDataset(), forestBackend(t), nil)

	code, body := do(t, router, http.MethodGet, "/api/v1/model", nil)
	if code != http.StatusOK || string(body["model"]) != "null" || string(body["available"]) != "true" {
		t.Fatalf("unexpected status before training: %d %v", code, body)
	}

	code, body = do(t, router, http.MethodPost, "/api/v1/model/train", nil)
	if code != http.StatusOK || len(body["accuracy"]) == 0 {
		t.Fatalf("expected accuracy, got %d %v", code, body)
	}

	code, body = do(t, router, http.MethodGet, "/api/v1/model", nil)
	if code != http.StatusOK || string(body["model"]) == "null" {
		t.Fatalf("expected active model, got %d %v", code, body)
	}

	code, body = do(t, router, http.MethodGet, "/api/v1/model/anomalies", nil)
	if code != http.StatusOK || len(body["anomalies_detected"]) == 0 {
		t.Fatalf("expected anomaly count, got %d %v", code, body)
	}
}

func TestModelEndpointErrors(t *testing.T) {
	noBackend := newTestApp(t, testDataset(), nil, nil)
	if code, _ := do(t, noBackend, http.MethodPost, "/api/v1/model/train", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without backend, got %d", code)
	}
	if code, _ := do(t, noBackend, http.MethodGet, "/api/v1/model/anomalies", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without backend, got %d", code)
	}

	noData := newTestApp(t, nil, forestBackend(t), nil)
	code, body := do(t, noData, http.MethodPost, "/api/v1/model/train", nil)
	if code != http.StatusNotFound || !strings.Contains(string(body["message"]), "no data available") {
		t.Fatalf("expected 404 no data, got %d %s", code, body["message"])
	}
}
