package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points CONFIG_FILE at a scratch location and clears the keys the
// tests read so the host environment does not leak in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"DATASET_PATH", "DATASET_FALLBACK_PATH", "MODEL_PATH", "OPENWEATHER_BASE_URL", "OPENWEATHER_API_KEY", "HTTP_TIMEOUT",
		"BASELINE_CITY", "BASELINE_COUNTRY", "WEATHER_LOCATION_CITY", "WEATHER_LOCATION_COUNTRY",
		"FETCH_INTERVAL", "STORE_MAX_HISTORY", "STORE_MAX_AGE", "RETRAIN_CRON",
		"ML_BACKEND", "FOREST_TREES", "FOREST_MAX_DEPTH", "PORT",
	} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CONFIG_FILE", path)
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatasetPath != "data/global_climate_data.csv" || cfg.DatasetFallbackPath != "data/climate_data.csv" {
		t.Fatalf("unexpected dataset paths %q, %q", cfg.DatasetPath, cfg.DatasetFallbackPath)
	}
	if cfg.Baseline.City != "Karachi" || cfg.Baseline.Country != "Pakistan" {
		t.Fatalf("unexpected baseline %+v", cfg.Baseline)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.FetchInterval != 15*time.Minute || cfg.StoreMaxAge != 24*time.Hour {
		t.Fatalf("unexpected durations %v %v %v", cfg.HTTPTimeout, cfg.FetchInterval, cfg.StoreMaxAge)
	}
	if cfg.MLBackend != "forest" || cfg.ForestTrees != 50 || cfg.ForestMaxDepth != 12 {
		t.Fatalf("unexpected model settings %+v", cfg)
	}
	if cfg.Port != "8080" || len(cfg.Locations) != 0 {
		t.Fatalf("unexpected port %q or locations %v", cfg.Port, cfg.Locations)
	}
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	path := isolate(t)
	yaml := "model_path: /var/lib/climate/model.zst\nforest_trees: 25\nport: \"9000\"\nweather_location_city: Karachi, London\nweather_location_country: Pakistan, United Kingdom\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModelPath != "/var/lib/climate/model.zst" || cfg.ForestTrees != 25 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Port != "7000" {
		t.Fatalf("environment must win over the file, got port %q", cfg.Port)
	}
	if len(cfg.Locations) != 2 || cfg.Locations[1].City != "London" || cfg.Locations[1].Country != "United Kingdom" {
		t.Fatalf("unexpected locations %+v", cfg.Locations)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad interval", "FETCH_INTERVAL", "often"},
		{"bad timeout", "HTTP_TIMEOUT", "0s"},
		{"mismatched locations", "WEATHER_LOCATION_CITY", "Karachi,London"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("WEATHER_LOCATION_COUNTRY", "Pakistan")
			if tt.key != "WEATHER_LOCATION_CITY" {
				t.Setenv("WEATHER_LOCATION_CITY", "Karachi")
			}
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
