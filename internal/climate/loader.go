package climate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// headerAliases maps alternative header spellings onto canonical column names.
var headerAliases = map[string]string{
	"co2_levels": ColCO2Level,
	"co2":        ColCO2Level,
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// Load reads the historical table from primary, falling back to fallback.
// When neither file exists it returns (nil, nil): absence is "no data", not a
// failure. An existing but unreadable file is reported as an error.
func Load(primary, fallback string) (*Dataset, error) {
	for _, p := range []string{primary, fallback} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat dataset %s: %w", p, err)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open dataset %s: %w", p, err)
		}
		defer f.Close()

		ds, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", p, err)
		}
		log.Printf("INFO: loaded %d climate records from %s", ds.Len(), p)
		return ds, nil
	}
	log.Printf("INFO: no climate dataset found at %q or %q", primary, fallback)
	return nil, nil
}

// ReadCSV parses a climate table. Columns are matched by header name; unknown
// columns are ignored and missing numeric cells become NaN. Rows whose date
// cannot be parsed are skipped.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewDataset(nil, ColDate), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	var columns []string
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if _, dup := index[name]; dup {
			continue
		}
		index[name] = i
		columns = append(columns, name)
	}

	cell := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(rec []string, col string) float64 {
		v := cell(rec, col)
		if v == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}

	_, hasDate := index[ColDate]
	var (
		records []Record
		skipped int
		line    = 1
	)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		var date time.Time
		if hasDate {
			d, ok := ParseDate(cell(rec, ColDate))
			if !ok {
				skipped++
				continue
			}
			date = d
		}

		records = append(records, Record{
			Date:        date,
			Temperature: num(rec, ColTemperature),
			Humidity:    num(rec, ColHumidity),
			CO2Level:    num(rec, ColCO2Level),
			City:        cell(rec, ColCity),
			Country:     cell(rec, ColCountry),
			WindSpeed:   num(rec, ColWindSpeed),
			Rainfall:    num(rec, ColRainfall),
			Pressure:    num(rec, ColPressure),
		})
	}
	if skipped > 0 {
		log.Printf("INFO: skipped %d rows with unparseable dates", skipped)
	}

	return NewDataset(records, columns...), nil
}

// ParseDate accepts ISO dates and a few common timestamp layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
