package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/common"
	"github.com/earthscape/climate-analytics/internal/weather"
)

type AppConfig struct {
	// Historical dataset, tried in order.
	DatasetPath         string
	DatasetFallbackPath string

	// ModelPath is where the trained model artifact lives.
	ModelPath string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout bounds each call to the weather service.
	HTTPTimeout time.Duration

	// Baseline is substituted when a request names no location.
	Baseline climate.Location

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration

	// Locations to track.
	Locations []weather.Location

	// In-memory prediction history retention.
	StoreMaxHistory int           // max predictions per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of predictions (0 = unlimited)

	// RetrainCron schedules model retraining; empty disables it.
	RetrainCron string

	MLBackend      string
	ForestTrees    int
	ForestMaxDepth int

	Port string
}

// source resolves a key from the environment first, then the optional YAML
// file. File keys are the lower-cased environment names.
type source struct {
	file map[string]string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	src, err := loadFile(getenvDefault("CONFIG_FILE", "config.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		DatasetPath:         src.get("DATASET_PATH", "data/global_climate_data.csv"),
		DatasetFallbackPath: src.get("DATASET_FALLBACK_PATH", "data/climate_data.csv"),
		ModelPath:           src.get("MODEL_PATH", "models/model.json.zst"),
		OpenWeatherAPIKey:   src.get("OPENWEATHER_API_KEY", ""),
		OpenWeatherBaseURL:  src.get("OPENWEATHER_BASE_URL", ""),
		Baseline: climate.Location{
			City:    src.get("BASELINE_CITY", "Karachi"),
			Country: src.get("BASELINE_COUNTRY", "Pakistan"),
		},
		StoreMaxHistory: src.getInt("STORE_MAX_HISTORY", 96), // roughly 24h at 15-minute intervals
		RetrainCron:     src.get("RETRAIN_CRON", ""),
		MLBackend:       src.get("ML_BACKEND", "forest"),
		ForestTrees:     src.getInt("FOREST_TREES", 50),
		ForestMaxDepth:  src.getInt("FOREST_MAX_DEPTH", 12),
		Port:            src.get("PORT", "8080"),
	}

	if cfg.HTTPTimeout, err = src.getDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = src.getDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = src.getDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}

	locs, err := parseLocations(src.get("WEATHER_LOCATION_CITY", ""), src.get("WEATHER_LOCATION_COUNTRY", ""))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

func loadFile(path string) (source, error) {
	src := source{file: map[string]string{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return src, nil
	}
	if err != nil {
		return src, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &src.file); err != nil {
		return src, fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.Printf("INFO: loaded configuration overlay from %s", path)
	return src, nil
}

func parseLocations(city, country string) ([]weather.Location, error) {
	cities := common.SplitList(city)
	countries := common.SplitList(country)
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		if cities[i] == "" || countries[i] == "" {
			return nil, fmt.Errorf("tracked location %d is missing a city or country", i+1)
		}
		locs = append(locs, weather.Location{
			City:    cities[i],
			Country: countries[i],
		})
	}
	return locs, nil
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := s.file[strings.ToLower(key)]; v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) int {
	if v := s.get(key, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Printf("ERROR: invalid %s %q, using %d", key, v, def)
	}
	return def
}

func (s source) getDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(s.get(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
