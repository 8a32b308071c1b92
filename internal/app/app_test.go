package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/config"
	"github.com/earthscape/climate-analytics/internal/ml"
)

func writeDataset(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,temperature,humidity,co2_level,city,country,wind_speed,rainfall,pressure\n")
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		h := 50 + float64(i%30)
		fmt.Fprintf(&b, "%s,%.1f,%.1f,%d,Karachi,Pakistan,%.1f,%.1f,%d\n",
			base.AddDate(0, 0, i).Format("2006-01-02"), 15+0.3*h, h, 400+i%20, 3+float64(i%7)*0.5, float64(i%5), 1000+i%15)
	}
	path := filepath.Join(dir, "climate.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(dir string) *config.AppConfig {
	return &config.AppConfig{
		DatasetPath:         filepath.Join(dir, "missing.csv"),
		DatasetFallbackPath: filepath.Join(dir, "climate.csv"),
		ModelPath:           filepath.Join(dir, "models", "model.json.zst"),
		HTTPTimeout:         time.Second,
		Baseline:            climate.Location{City: "Karachi", Country: "Pakistan"},
		FetchInterval:       time.Hour,
		MLBackend:           "forest",
		ForestTrees:         5,
		ForestMaxDepth:      4,
	}
}

func TestNewLoadsDatasetAndTrains(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, 120)

	a, err := New(testConfig(dir))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if a.Dataset.Len() != 120 {
		t.Fatalf("expected 120 rows, got %d", a.Dataset.Len())
	}
	res, err := a.Train()
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := os.Stat(a.Config.ModelPath); err != nil {
		t.Fatalf("expected artifact at %s: %v", a.Config.ModelPath, err)
	}
	if a.Models.Active().ID != res.ID {
		t.Fatalf("trained model is not active")
	}
	if _, err := a.DetectAnomalies(); err != nil {
		t.Fatalf("detect: %v", err)
	}
}

func TestNewWithoutDatasetOrBackend(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MLBackend = "none"

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Dataset != nil {
		t.Fatalf("expected no dataset")
	}
	if _, err := a.Train(); !errors.Is(err, ml.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if got := a.Analytics.Series("", "", nil, nil); len(got) != 0 {
		t.Fatalf("expected empty series, got %d rows", len(got))
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MLBackend = "svm"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
