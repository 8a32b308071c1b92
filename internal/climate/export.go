package climate

import "math"

// SeriesRow is a JSON-safe view of a record for client-side charting.
type SeriesRow struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CO2Level    float64 `json:"co2_level"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	WindSpeed   float64 `json:"wind_speed"`
	Rainfall    float64 `json:"rainfall"`
	Pressure    float64 `json:"pressure"`
}

// Export converts ds into row records. Dates are rendered as YYYY-MM-DD and
// missing numeric values become 0. The result is never nil.
func Export(ds *Dataset) []SeriesRow {
	rows := make([]SeriesRow, 0, ds.Len())
	if ds.Empty() {
		return rows
	}

	hasDate := ds.HasColumn(ColDate)
	for _, r := range ds.records {
		row := SeriesRow{
			Temperature: zeroIfMissing(r.Temperature),
			Humidity:    zeroIfMissing(r.Humidity),
			CO2Level:    zeroIfMissing(r.CO2Level),
			City:        r.City,
			Country:     r.Country,
			WindSpeed:   zeroIfMissing(r.WindSpeed),
			Rainfall:    zeroIfMissing(r.Rainfall),
			Pressure:    zeroIfMissing(r.Pressure),
		}
		if hasDate {
			row.Date = r.Date.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

func zeroIfMissing(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
