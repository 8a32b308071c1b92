package climate

import (
	"math"
	"time"
)

// Column names of the historical table.
const (
	ColDate        = "date"
	ColTemperature = "temperature"
	ColHumidity    = "humidity"
	ColCO2Level    = "co2_level"
	ColCity        = "city"
	ColCountry     = "country"
	ColWindSpeed   = "wind_speed"
	ColRainfall    = "rainfall"
	ColPressure    = "pressure"
)

// NumericColumns lists the numeric fields in table order.
var NumericColumns = []string{
	ColTemperature,
	ColHumidity,
	ColCO2Level,
	ColWindSpeed,
	ColRainfall,
	ColPressure,
}

// Record is a single historical observation. Missing numeric cells are NaN.
type Record struct {
	Date        time.Time
	Temperature float64
	Humidity    float64
	CO2Level    float64
	City        string
	Country     string
	WindSpeed   float64
	Rainfall    float64
	Pressure    float64
}

// Value returns the numeric field named col, or NaN and false if col is not numeric.
func (r Record) Value(col string) (float64, bool) {
	switch col {
	case ColTemperature:
		return r.Temperature, true
	case ColHumidity:
		return r.Humidity, true
	case ColCO2Level:
		return r.CO2Level, true
	case ColWindSpeed:
		return r.WindSpeed, true
	case ColRainfall:
		return r.Rainfall, true
	case ColPressure:
		return r.Pressure, true
	default:
		return math.NaN(), false
	}
}

// Location identifies a city within a country. Either part may be empty when
// used as a filter.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Dataset is an ordered, read-only table of records. A nil *Dataset means
// "no data" and is accepted by every function in this package.
type Dataset struct {
	records []Record
	columns map[string]bool
}

// NewDataset builds a dataset over records. columns names the table's columns;
// when empty, every known column is assumed present.
func NewDataset(records []Record, columns ...string) *Dataset {
	ds := &Dataset{
		records: records,
		columns: make(map[string]bool),
	}
	if len(columns) == 0 {
		columns = append([]string{ColDate, ColCity, ColCountry}, NumericColumns...)
	}
	for _, c := range columns {
		ds.columns[c] = true
	}
	return ds
}

// Len returns the number of records; zero for a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Empty reports whether the dataset is nil or has no records.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// At returns the i-th record.
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// HasColumn reports whether the source table carried the column.
func (d *Dataset) HasColumn(col string) bool {
	if d == nil {
		return false
	}
	return d.columns[col]
}

// Records returns a copy of the records so callers cannot mutate shared state.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Column returns the values of a numeric column in row order.
func (d *Dataset) Column(col string) []float64 {
	if d == nil {
		return nil
	}
	out := make([]float64, len(d.records))
	for i, r := range d.records {
		v, _ := r.Value(col)
		out[i] = v
	}
	return out
}

// NumericColumns returns the numeric columns that are present in the table and
// hold at least one value.
func (d *Dataset) NumericColumns() []string {
	if d.Empty() {
		return nil
	}
	var cols []string
	for _, c := range NumericColumns {
		if !d.columns[c] {
			continue
		}
		for _, r := range d.records {
			if v, _ := r.Value(c); !math.IsNaN(v) {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

func (d *Dataset) columnList() []string {
	cols := make([]string, 0, len(d.columns))
	for c := range d.columns {
		cols = append(cols, c)
	}
	return cols
}
