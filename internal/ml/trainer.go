package ml

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/earthscape/climate-analytics/internal/climate"
)

// TrainResult summarises a completed training run.
type TrainResult struct {
	ID        string    `json:"id"`
	Accuracy  float64   `json:"accuracy"`
	Rows      int       `json:"rows"`
	TrainedAt time.Time `json:"trained_at"`
}

// Trainer fits the temperature regressor and publishes it to a ModelSlot.
// At most one training run is active at a time.
type Trainer struct {
	backend *Backend
	slot    *ModelSlot
	running sync.Mutex
}

// NewTrainer creates a new Trainer. backend may be nil, in which case every
// call fails with ErrBackendUnavailable.
func NewTrainer(backend *Backend, slot *ModelSlot) *Trainer {
	return &Trainer{backend: backend, slot: slot}
}

// Train fits a forest on an 80/20 split of ds, scores the holdout with R²,
// persists the artifact and only then makes it active. On any failure the
// previous artifact file and active model are left untouched.
func (t *Trainer) Train(ds *climate.Dataset) (TrainResult, error) {
	if t.backend == nil {
		return TrainResult{}, ErrBackendUnavailable
	}
	if ds.Empty() {
		return TrainResult{}, ErrNoData
	}
	if !t.running.TryLock() {
		return TrainResult{}, ErrTrainingInProgress
	}
	defer t.running.Unlock()

	cols := append(append([]string{}, TrainingFeatures...), climate.ColTemperature)
	data, _ := matrix(ds, cols)
	if len(data) < 2 {
		return TrainResult{}, fmt.Errorf("%w: need at least 2 complete rows, have %d", ErrNoData, len(data))
	}

	nf := len(TrainingFeatures)
	X := make([][]float64, len(data))
	y := make([]float64, len(data))
	for i, row := range data {
		X[i] = row[:nf]
		y[i] = row[nf]
	}

	start := time.Now()
	trainIdx, testIdx := trainTestSplit(len(X), testFraction, t.backend.Seed)
	trainX, trainY := subset(X, y, trainIdx)
	testX, testY := subset(X, y, testIdx)

	forest := FitForest(trainX, trainY, t.backend.forestParams())

	estimates := make([]float64, len(testX))
	for i, x := range testX {
		estimates[i] = forest.Predict(x)
	}
	accuracy := stat.RSquaredFrom(estimates, testY, nil)
	if math.IsNaN(accuracy) || math.IsInf(accuracy, 0) {
		accuracy = 0
	}

	means := make([]float64, nf)
	col := make([]float64, len(trainX))
	for j := range means {
		for i, x := range trainX {
			col[i] = x[j]
		}
		means[j] = stat.Mean(col, nil)
	}

	artifact := &Artifact{
		ID:           uuid.NewString(),
		Backend:      t.backend.Name,
		Accuracy:     accuracy,
		TrainedAt:    time.Now().UTC(),
		Rows:         len(X),
		Features:     append([]string{}, TrainingFeatures...),
		FeatureMeans: means,
		Forest:       forest,
	}
	if err := t.slot.Replace(artifact); err != nil {
		log.Printf("ERROR: trainer: persisting model: %v", err)
		return TrainResult{}, fmt.Errorf("persist model: %w", err)
	}

	log.Printf("INFO: trainer: model %s trained on %d rows in %s, holdout R2 %.4f",
		artifact.ID, len(trainX), time.Since(start).Round(time.Millisecond), accuracy)

	return TrainResult{
		ID:        artifact.ID,
		Accuracy:  accuracy,
		Rows:      artifact.Rows,
		TrainedAt: artifact.TrainedAt,
	}, nil
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = X[j]
		sy[i] = y[j]
	}
	return sx, sy
}
