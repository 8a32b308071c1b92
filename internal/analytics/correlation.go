package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/earthscape/climate-analytics/internal/climate"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// At returns the coefficient for columns a and b.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Correlate computes pairwise Pearson correlation over the numeric columns of
// ds, using only rows where both values are present. Undefined coefficients
// (fewer than two paired values, or zero variance) are reported as 0. It
// returns nil when ds is empty or has no numeric columns.
func Correlate(ds *climate.Dataset) *CorrMatrix {
	cols := ds.NumericColumns()
	if len(cols) == 0 {
		return nil
	}

	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i] = ds.Column(c)
	}

	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}

	xs := make([]float64, 0, ds.Len())
	ys := make([]float64, 0, ds.Len())
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			xs, ys = xs[:0], ys[:0]
			for k := range data[a] {
				x, y := data[a][k], data[b][k]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
			var r float64
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			mat[a][b] = r
			mat[b][a] = r
		}
	}

	return &CorrMatrix{Columns: cols, Values: mat}
}
