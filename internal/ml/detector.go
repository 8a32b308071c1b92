package ml

import (
	"log"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/earthscape/climate-analytics/internal/climate"
)

const (
	defaultContamination = 0.05
	isolationTrees       = 100
	isolationSampleSize  = 256
)

// DetectResult reports the outcome of an anomaly scan.
type DetectResult struct {
	Count     int     `json:"anomalies_detected"`
	Rows      int     `json:"rows"`
	Threshold float64 `json:"threshold"`
	// Flagged holds the dataset positions of the outlying rows.
	Flagged []int `json:"-"`
}

// Detector counts outlying rows with an isolation forest fitted on every call.
type Detector struct {
	backend       *Backend
	contamination float64
}

// NewDetector creates a new Detector. backend may be nil, in which case every
// call fails with ErrBackendUnavailable.
func NewDetector(backend *Backend) *Detector {
	return &Detector{backend: backend, contamination: defaultContamination}
}

// Detect fits a fresh isolation forest over the anomaly features and flags
// the rows whose score lies above the (1 - contamination) quantile.
func (d *Detector) Detect(ds *climate.Dataset) (DetectResult, error) {
	if d.backend == nil {
		return DetectResult{}, ErrBackendUnavailable
	}
	if ds.Empty() {
		return DetectResult{}, ErrNoData
	}

	X, rows := matrix(ds, AnomalyFeatures)
	if len(X) == 0 {
		return DetectResult{}, ErrNoData
	}

	forest := FitIsolationForest(X, isolationTrees, isolationSampleSize, d.backend.Seed)
	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = forest.Score(x)
	}

	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	threshold := stat.Quantile(1-d.contamination, stat.Empirical, sorted, nil)

	res := DetectResult{Rows: len(X), Threshold: threshold}
	for i, s := range scores {
		if s > threshold {
			res.Flagged = append(res.Flagged, rows[i])
		}
	}
	res.Count = len(res.Flagged)

	log.Printf("DEBUG: anomaly scan over %d rows flagged %d", len(X), res.Count)
	return res, nil
}
