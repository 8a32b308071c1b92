package app

import (
	"fmt"
	"log"
	"net/http"

	"github.com/earthscape/climate-analytics/internal/analytics"
	"github.com/earthscape/climate-analytics/internal/climate"
	"github.com/earthscape/climate-analytics/internal/config"
	"github.com/earthscape/climate-analytics/internal/ml"
	"github.com/earthscape/climate-analytics/internal/scheduler"
	"github.com/earthscape/climate-analytics/internal/store"
	"github.com/earthscape/climate-analytics/internal/weather"
	"github.com/earthscape/climate-analytics/internal/weather/providers"
)

// App is the application context, built once at startup and handed to the
// HTTP layer. Every field is safe for concurrent use.
type App struct {
	Config *config.AppConfig

	// Dataset is nil when no historical table was found.
	Dataset   *climate.Dataset
	Analytics *analytics.Service
	Weather   *weather.Service

	// Backend is nil when model training is unavailable.
	Backend  *ml.Backend
	Models   *ml.ModelSlot
	Trainer  *ml.Trainer
	Detector *ml.Detector

	Scheduler *scheduler.Scheduler
}

// New wires every component from cfg. The dataset is read here and never
// again; the model artifact is only read on first use.
func New(cfg *config.AppConfig) (*App, error) {
	ds, err := climate.Load(cfg.DatasetPath, cfg.DatasetFallbackPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	backend, err := ml.Probe(cfg.MLBackend, cfg.ForestTrees, cfg.ForestMaxDepth)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		log.Println("INFO: model backend disabled; training and anomaly detection are unavailable")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL)

	a := &App{
		Config:    cfg,
		Dataset:   ds,
		Analytics: analytics.NewService(ds, cfg.Baseline),
		Backend:   backend,
		Models:    ml.NewModelSlot(cfg.ModelPath),
		Detector:  ml.NewDetector(backend),
	}
	a.Trainer = ml.NewTrainer(backend, a.Models)

	var estimator weather.Estimator
	if backend != nil {
		estimator = ml.NewEstimator(a.Models)
	}
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	a.Weather = weather.NewService(memStore, provider, estimator, cfg.HTTPTimeout)

	var retrain func() error
	if backend != nil {
		retrain = func() error {
			_, err := a.Train()
			return err
		}
	}
	a.Scheduler = scheduler.New(cfg.Locations, cfg.FetchInterval, a.Weather, cfg.RetrainCron, retrain)

	return a, nil
}

// Train fits a new model on the full dataset.
func (a *App) Train() (ml.TrainResult, error) {
	return a.Trainer.Train(a.Dataset)
}

// DetectAnomalies scans the full dataset for outlying rows.
func (a *App) DetectAnomalies() (ml.DetectResult, error) {
	return a.Detector.Detect(a.Dataset)
}

// Start launches the background jobs.
func (a *App) Start() error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start()
}

// Close stops the background jobs.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
}
