package ml

import (
	"math"
	"math/rand"

	"github.com/earthscape/climate-analytics/internal/climate"
)

const (
	defaultSeed  = 42
	testFraction = 0.2
)

// TrainingFeatures are the regressor inputs, in column order.
var TrainingFeatures = []string{
	climate.ColHumidity,
	climate.ColCO2Level,
	climate.ColWindSpeed,
	climate.ColRainfall,
	climate.ColPressure,
}

// AnomalyFeatures are the columns the anomaly detector scores.
var AnomalyFeatures = []string{
	climate.ColTemperature,
	climate.ColHumidity,
	climate.ColCO2Level,
	climate.ColWindSpeed,
	climate.ColRainfall,
	climate.ColPressure,
}

// matrix extracts the complete rows of cols from ds. Rows with any missing
// value are dropped; rows[i] is the dataset position of X[i].
func matrix(ds *climate.Dataset, cols []string) (X [][]float64, rows []int) {
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		x := make([]float64, len(cols))
		complete := true
		for j, c := range cols {
			v, _ := r.Value(c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
			x[j] = v
		}
		if complete {
			X = append(X, x)
			rows = append(rows, i)
		}
	}
	return X, rows
}

// trainTestSplit shuffles 0..n-1 with seed and holds out ceil(n*testFrac)
// positions for testing.
func trainTestSplit(n int, testFrac float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFrac))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}
